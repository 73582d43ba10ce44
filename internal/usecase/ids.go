package usecase

import "github.com/oklog/ulid/v2"

// newPrefixedID returns a sortable, gateway-style id such as "pi_01HV...".
func newPrefixedID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}
