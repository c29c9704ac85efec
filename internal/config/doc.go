// Package config provides configuration parsing for the pushkit CLI.
//
// The configuration is stored in pushkit.json in the working
// directory. This package handles loading, saving, and validating
// configuration. Unknown keys are ignored, not errors, so the file
// can carry settings for other tools.
//
// # Configuration File Structure
//
//	{
//	  "key": "app-key",
//	  "secret": "app-secret",
//	  "cluster": "eu",
//	  "insecure": false,
//	  "auth": {
//	    "endpoint": "https://example.com/pusher/auth",
//	    "headers": {
//	      "Authorization": "Bearer token"
//	    }
//	  },
//	  "userAuth": {
//	    "endpoint": "https://example.com/pusher/user-auth"
//	  },
//	  "reconnect": {
//	    "minDelay": "1s",
//	    "maxDelay": "30s",
//	    "maxAttempts": 0
//	  },
//	  "authServer": {
//	    "addr": ":8736"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Key:", cfg.Key)
package config
