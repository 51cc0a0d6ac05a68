package domain

// Policy is the immutable attachment policy injected into the service:
// which declared media types are accepted and how many bytes a single
// task may hold in total. The quota is shared across all attachments of
// a task, it is not a per-file limit.
type Policy struct {
	QuotaBytes   int64
	AllowedTypes []string
}

const DefaultQuotaBytes = 50 * 1024 * 1024

// DefaultPolicy returns the stock policy: 50 MiB per task, five accepted
// media types. Declared types are taken at face value, no content
// sniffing happens anywhere downstream.
func DefaultPolicy() Policy {
	return Policy{
		QuotaBytes: DefaultQuotaBytes,
		AllowedTypes: []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"image/png",
			"image/jpeg",
		},
	}
}

// Allows reports whether the declared media type is on the allow-list.
func (p Policy) Allows(mediaType string) bool {
	for _, allowed := range p.AllowedTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}
