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
	// Structural Errors (E001-E009)
	// ============================================

	"E001": {
		Category: CategoryStructural,
		Message:  "Patch path not found",
		Detail:   "A patch addressed a node that does not exist in the live tree. The live document no longer matches the last rendered tree.",
		DocURL:   "https://domsync.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryStructural,
		Message:  "Node kind mismatch",
		Detail:   "A patch targeted a node of the wrong kind, such as setting an attribute on a text node.",
		DocURL:   "https://domsync.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryStructural,
		Message:  "Not mounted",
		Detail:   "The operation needs a mounted tree. Call Mount or Start first.",
		DocURL:   "https://domsync.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryScheduler,
		Message:  "Program closed",
		Detail:   "The mount instance has been torn down and no longer accepts render requests.",
		DocURL:   "https://domsync.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryStructural,
		Message:  "Invalid patch",
		Detail:   "The patch is missing the data its operation needs, or the operation is unknown.",
		DocURL:   "https://domsync.dev/docs/errors/E005",
	},
	"E006": {
		Category: CategoryScheduler,
		Message:  "Render panicked",
		Detail:   "The render function panicked. The cycle was abandoned and the scheduler is idle again.",
		DocURL:   "https://domsync.dev/docs/errors/E006",
	},

	// ============================================
	// Host Errors (E010-E019)
	// ============================================

	"E010": {
		Category: CategoryHost,
		Message:  "Host operation failed",
		Detail:   "The host document rejected a mutation. Patches after the failing one were not applied.",
		DocURL:   "https://domsync.dev/docs/errors/E010",
	},
	"E011": {
		Category: CategoryHost,
		Message:  "Listener registration failed",
		Detail:   "The host document refused to register a delegated event listener at the mount root.",
		DocURL:   "https://domsync.dev/docs/errors/E011",
	},
	"E012": {
		Category: CategoryHost,
		Message:  "Host connection lost",
		Detail:   "The remote host document is no longer reachable.",
		DocURL:   "https://domsync.dev/docs/errors/E012",
	},

	// ============================================
	// Config Errors (E020-E029)
	// ============================================

	"E020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "domsync.json could not be read or parsed.",
		DocURL:   "https://domsync.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
		DocURL:   "https://domsync.dev/docs/errors/E021",
	},

	// ============================================
	// Protocol Errors (E030-E039)
	// ============================================

	"E030": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "A binary frame was truncated or carried an invalid length.",
		DocURL:   "https://domsync.dev/docs/errors/E030",
	},
	"E031": {
		Category: CategoryProtocol,
		Message:  "Unknown operation",
		Detail:   "A frame carried an operation or frame type this version does not understand.",
		DocURL:   "https://domsync.dev/docs/errors/E031",
	},
	"E032": {
		Category: CategoryProtocol,
		Message:  "Unknown event target",
		Detail:   "An event frame named a node the document no longer holds. The event was dropped.",
		DocURL:   "https://domsync.dev/docs/errors/E032",
	},

	// ============================================
	// CLI Errors (E040-E049)
	// ============================================

	"E040": {
		Category: CategoryCLI,
		Message:  "Invalid tree",
		Detail:   "The input is not a valid JSON tree. Every node needs one of tag, text, comment or fragment.",
		DocURL:   "https://domsync.dev/docs/errors/E040",
	},
	"E041": {
		Category: CategoryCLI,
		Message:  "Round-trip mismatch",
		Detail:   "Applying the computed patches did not reproduce the target tree.",
		DocURL:   "https://domsync.dev/docs/errors/E041",
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
