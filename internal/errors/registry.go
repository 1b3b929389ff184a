package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category    Category
	Severity    Severity
	Recoverable bool
	Message     string
	Detail      string
}

// Registered error codes.
const (
	CodePrimitivePath    = "R001"
	CodeDerivedReadOnly  = "R002"
	CodeNotComposite     = "R003"
	CodeUpdaterFailed    = "R004"
	CodeUnresolvablePath = "R010"
	CodeIndexRange       = "R011"
	CodeNoTracking       = "R020"
	CodeMissingAtom      = "R021"
	CodeForeignGoroutine = "R022"
	CodeDisposed         = "R023"
	CodeCircular         = "R030"
	CodeComputeFailed    = "R040"
	CodeTransaction      = "R050"
	CodeSubscriber       = "R060"
	CodeEffectFailed     = "R070"
	CodeCleanupFailed    = "R071"
	CodeEffectRunaway    = "R072"
	CodeInvalidConfig    = "R080"
	CodeConfigMissing    = "R081"
	CodeScenarioParse    = "R090"
	CodeScenarioExpect   = "R091"
	CodeSnapshotMissing  = "R095"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// State Errors (R001-R009)
	// ============================================

	CodePrimitivePath: {
		Category: CategoryState,
		Severity: SeverityError,
		Message:  "Path operation on a primitive state",
		Detail:   "getPath and setPath require the atom to hold a map or list.",
	},
	CodeDerivedReadOnly: {
		Category: CategoryState,
		Severity: SeverityError,
		Message:  "Cannot directly set or update a derived state",
		Detail:   "Derived values are recomputed from their sources. Write to a source atom instead.",
	},
	CodeNotComposite: {
		Category: CategoryState,
		Severity: SeverityError,
		Message:  "Value is not an object or array",
		Detail:   "At() navigates into maps and lists only.",
	},
	CodeUpdaterFailed: {
		Category:    CategoryState,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Updater function failed",
		Detail:      "The update was discarded and the previous value kept.",
	},

	// ============================================
	// Path Errors (R010-R019)
	// ============================================

	CodeUnresolvablePath: {
		Category:    CategoryPath,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Cannot resolve path segment",
	},
	CodeIndexRange: {
		Category:    CategoryPath,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "List index out of range",
	},

	// ============================================
	// Dependency Errors (R020-R029)
	// ============================================

	CodeNoTracking: {
		Category: CategoryDependency,
		Severity: SeverityError,
		Message:  "Stop tracking called with no active tracking session",
	},
	CodeMissingAtom: {
		Category:    CategoryDependency,
		Severity:    SeverityWarning,
		Recoverable: true,
		Message:     "Atom not found in registry",
		Detail:      "A dependency was recorded for an atom that has been disposed.",
	},
	CodeForeignGoroutine: {
		Category: CategoryDependency,
		Severity: SeverityError,
		Message:  "Universe used from a foreign goroutine",
		Detail:   "A universe is confined to the goroutine that created it.",
	},
	CodeDisposed: {
		Category:    CategoryDependency,
		Severity:    SeverityWarning,
		Recoverable: true,
		Message:     "Operation on a disposed reactive entity",
	},

	// ============================================
	// Circular Dependency Errors (R030-R039)
	// ============================================

	CodeCircular: {
		Category:    CategoryCircular,
		Severity:    SeverityFatal,
		Recoverable: false,
		Message:     "Circular dependency detected",
		Detail:      "The dependency update was rolled back; recorded dependencies are unchanged.",
	},

	// ============================================
	// Derivation Errors (R040-R049)
	// ============================================

	CodeComputeFailed: {
		Category:    CategoryDerivation,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Derived computation failed",
		Detail:      "The previous cached value is retained.",
	},

	// ============================================
	// Transaction Errors (R050-R059)
	// ============================================

	CodeTransaction: {
		Category: CategoryTransaction,
		Severity: SeverityError,
		Message:  "Transaction body failed",
		Detail:   "Pending effects were flushed before the failure was propagated.",
	},

	// ============================================
	// Subscription Errors (R060-R069)
	// ============================================

	CodeSubscriber: {
		Category:    CategorySubscription,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Subscriber panicked",
	},

	// ============================================
	// Effect Errors (R070-R079)
	// ============================================

	CodeEffectFailed: {
		Category:    CategoryEffect,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Effect body failed",
	},
	CodeCleanupFailed: {
		Category:    CategoryEffect,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Effect cleanup failed",
	},
	CodeEffectRunaway: {
		Category:    CategoryEffect,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Effect re-run limit exceeded",
		Detail:      "The effect kept invalidating itself. It stays subscribed but stopped re-running for this pass.",
	},

	// ============================================
	// Config, Scenario and History Errors (R080-R099)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Severity: SeverityError,
		Message:  "Invalid configuration",
	},
	CodeConfigMissing: {
		Category:    CategoryConfig,
		Severity:    SeverityWarning,
		Recoverable: true,
		Message:     "Configuration file not found",
	},
	CodeScenarioParse: {
		Category: CategoryScenario,
		Severity: SeverityError,
		Message:  "Invalid scenario file",
	},
	CodeScenarioExpect: {
		Category:    CategoryScenario,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Scenario expectation failed",
	},
	CodeSnapshotMissing: {
		Category:    CategoryHistory,
		Severity:    SeverityError,
		Recoverable: true,
		Message:     "Snapshot not found",
		Detail:      "The snapshot was dropped by the history limit or cleared.",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
