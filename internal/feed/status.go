package feed

// Negative response statuses encode network-level failures that never
// produced an HTTP status line. Positive values are plain HTTP codes.
const (
	StatusConnectionError   = -200
	StatusConnectionTimeout = -201
	StatusReadTimeout       = -202
	StatusDNSError          = -203
	StatusTLSError          = -204
	StatusProxyError        = -205
	StatusTooManyRedirects  = -206
	StatusContentTooLarge   = -207
	StatusContentDecodeErr  = -208
)

// needProxyStatuses are responses where routing through a proxy has a
// realistic chance of succeeding where a direct fetch did not.
var needProxyStatuses = map[int]bool{
	StatusConnectionError:   true,
	StatusConnectionTimeout: true,
	StatusReadTimeout:       true,
	StatusDNSError:          true,
	StatusTLSError:          true,
	401:                     true,
	403:                     true,
	429:                     true,
	451:                     true,
}

// IsNeedProxy reports whether a retry through the proxy is worth attempting
// for the given response status.
func IsNeedProxy(status int) bool {
	return needProxyStatuses[status]
}
