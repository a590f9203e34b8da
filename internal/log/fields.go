package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldFiscalYear   = "fiscal_year"
	FieldCreditID     = "credit_id"
	FieldExpenseID    = "expense_id"
	FieldObligationID = "obligation_id"
	FieldStatus       = "status"
	FieldAmountCents  = "amount_cents"
	FieldEventType    = "event_type"
	FieldReport       = "report"
	FieldBackup       = "backup"
)

// Components defines standard component names
const (
	ComponentApp            = "app"
	ComponentHTTP           = "http"
	ComponentCredit         = "credit"
	ComponentExpense        = "expense"
	ComponentAccountability = "accountability"
	ComponentDashboard      = "dashboard"
	ComponentGoals          = "goals"
	ComponentClosing        = "closing"
	ComponentBackup         = "backup"
	ComponentStorage        = "storage"
	ComponentEvents         = "events"
	ComponentWorker         = "worker"
	ComponentSheets         = "sheets"
	ComponentSecurity       = "security"
	ComponentRateLimit      = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpFulfil   = "fulfil"
	OpLink     = "link"
	OpClose    = "close"
	OpReopen   = "reopen"
	OpPublish  = "publish"
	OpExport   = "export"
	OpImport   = "import"
	OpSync     = "sync"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeBalance       = "insufficient_balance"
	ErrorTypeIntegrity     = "referential_integrity"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error and, when given, its category.
func (f LogFields) WithError(err error, errorType ...string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if len(errorType) > 0 {
			f[FieldErrorType] = errorType[0]
		}
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithCredit(id string, fiscalYear int) LogFields {
	f[FieldCreditID] = id
	f[FieldFiscalYear] = fiscalYear
	return f
}

func (f LogFields) WithExpense(id, status string, totalCents int64) LogFields {
	f[FieldExpenseID] = id
	f[FieldStatus] = status
	f[FieldAmountCents] = totalCents
	return f
}

func (f LogFields) WithObligation(id, creditID, status string) LogFields {
	f[FieldObligationID] = id
	f[FieldCreditID] = creditID
	f[FieldStatus] = status
	return f
}

// With adds an arbitrary key.
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
