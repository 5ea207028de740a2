package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Reaction cycle detected",
		Detail:   "A reaction writes, directly or through other reactions, to a field it depends on. Notification recursed past the configured maximum depth.",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Unknown field",
		Detail:   "The field was not present on the target when it was wrapped. Fields added later are never tracked.",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Value not assignable to field",
		Detail:   "The value's type cannot be stored in the target field.",
	},

	// ============================================
	// Config Errors (E100-E149)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "The configuration file does not exist.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The server address must be in host:port form.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid maximum depth",
		Detail:   "The notification depth limit must be zero (unbounded) or positive.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid snapshot driver",
		Detail:   "The snapshot driver must be one of: none, file, s3.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Incomplete snapshot configuration",
		Detail:   "The selected snapshot driver is missing a required setting.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "The log level must be one of: debug, info, warn, error.",
	},

	// ============================================
	// Storage Errors (E150-E199)
	// ============================================

	"E150": {
		Category: CategoryStorage,
		Message:  "Snapshot restore failed",
		Detail:   "The stored snapshot could not be loaded or applied to the store.",
	},
	"E151": {
		Category: CategoryStorage,
		Message:  "Snapshot save failed",
		Detail:   "The store state could not be written to the snapshot backend.",
	},

	// ============================================
	// CLI Errors (E200-E249)
	// ============================================

	"E200": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
	"E201": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command-line flag has a value that cannot be used.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
