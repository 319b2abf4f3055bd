package trace

import "net/http"

// Middleware continues the caller's trace from request headers, or starts a
// new one, and echoes the trace ID in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := FromHeaders(r.Header)
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

// FromHeaders builds a server-side span context from HTTP headers.
func FromHeaders(h http.Header) Context {
	return FromMap(map[string]string{
		TraceIDKey: h.Get(TraceIDKey),
		SpanIDKey:  h.Get(SpanIDKey),
	})
}

// Inject writes ctx's trace into outgoing request headers.
func Inject(r *http.Request) {
	tc, ok := FromContext(r.Context())
	if !ok {
		return
	}
	for k, v := range tc.ToMap() {
		r.Header.Set(k, v)
	}
}
