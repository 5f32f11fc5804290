package telemetry

// API is what every component reports through, it hides whether reports end
// up in slog, a test Recorder or somewhere else.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that has broken in a way that should be addressed.
	//
	// The `id` is a fully qualified identifier that should indicate what **component** broke, not what
	// specific piece of the implementation of a component broke. If you came across the report in a log
	// aggregator, you should be able to find the place that is broken from the id alone.
	//
	// ex. Suppose the gzip step of decoding a captured spin exchange fails. The id should be
	// `decoder.decode`, no more granular than that. If you need to disambiguate that it was gzip that
	// failed, wrap the error with fmt.Errorf or add a param.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	//
	// Use ScopedAPI to namespace the ids of a package, so the id itself only needs to be
	// `<name of struct or intf>.<method>`.
	ReportBroken(id string, params ...any)

	// ReportWarning reports a scenario that does not necessarily indicate brokenness, but may be subject
	// to investigation (ex. OCR returning no digits).
	//
	// For what value to provide as `id` refer to ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports some debug information that will be ignored in production
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current count of a specific event at the current time, these counts should
	// not be summed but interpreted as points of data over time.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes the ids of every report with a namespace. Scopes nest,
// a ScopedAPI created from another one joins both namespaces with a dot.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if scoped, ok := inner.(ScopedAPI); ok {
		return ScopedAPI{namespace: scoped.namespace + "." + namespace, inner: scoped.inner}
	}
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) id(id string) string {
	return s.namespace + "." + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.id(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.id(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.id(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.id(id), count)
}
