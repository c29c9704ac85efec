package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryConfig,
		Message:  "No configuration file found",
		Detail:   "The CLI looks for pushkit.json in the working directory (or the path given with --config).",
		DocURL:   "https://pushkit.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryConfig,
		Message:  "Configuration file is not valid JSON",
		DocURL:   "https://pushkit.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryConfig,
		Message:  "Missing app key",
		Detail:   "Every command needs the application key the server issued for your app.",
		DocURL:   "https://pushkit.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryConfig,
		Message:  "Missing app secret",
		Detail:   "The auth server signs subscription requests with the app secret.",
		DocURL:   "https://pushkit.dev/docs/errors/E004",
	},

	// ============================================
	// Connect Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryConnect,
		Message:  "Could not establish a connection",
		DocURL:   "https://pushkit.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryConnect,
		Message:  "Connection rejected by the server",
		Detail:   "The server closed the connection with a code that forbids retrying, usually a bad app key or a disabled application.",
		DocURL:   "https://pushkit.dev/docs/errors/E021",
	},

	// ============================================
	// Auth Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryAuth,
		Message:  "Channel authorization failed",
		Detail:   "The auth endpoint refused to sign the subscription, or its response could not be parsed.",
		DocURL:   "https://pushkit.dev/docs/errors/E040",
	},

	// ============================================
	// CLI Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryCLI,
		Message:  "Invalid channel name",
		Detail:   "Channel names are limited to 164 characters drawn from letters, digits, and _ - = @ , . ;",
		DocURL:   "https://pushkit.dev/docs/errors/E060",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
