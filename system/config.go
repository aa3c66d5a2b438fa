package system

import "strings"

// ParseConfig splits a "key=value,key=value" string into a map, the shape
// every peripheral's Config callback is expected to accept (spec.md's
// late-bound "config" callback). Peripherals are normally fully configured
// via constructor options; Config exists for the rare case a caller wants
// to rebind something after construction without a typed option for it.
func ParseConfig(cfg string) map[string]string {
	out := map[string]string{}
	for _, field := range strings.Split(cfg, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			out[k] = ""
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
