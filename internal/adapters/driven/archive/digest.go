package archive

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// digestPreference orders the algorithms accepted from digest headers.
var digestPreference = []string{
	domain.AlgorithmSHA512,
	domain.AlgorithmSHA256,
	domain.AlgorithmSHA1,
	domain.AlgorithmMD5,
}

// responseDigest returns the strongest checksum announced by the response.
// Both RFC 3230 "Digest: sha-256=<base64>" and RFC 9530
// "Content-Digest: sha-256=:<base64>:" are understood.
func responseDigest(h http.Header) domain.Checksum {
	found := make(map[string]string)
	for _, name := range []string{"Content-Digest", "Repr-Digest", "Digest"} {
		for _, header := range h.Values(name) {
			for _, part := range strings.Split(header, ",") {
				alg, value, ok := strings.Cut(strings.TrimSpace(part), "=")
				if !ok {
					continue
				}
				norm, err := domain.NormalizeAlgorithm(alg)
				if err != nil {
					continue
				}
				raw, err := base64.StdEncoding.DecodeString(strings.Trim(value, ":"))
				if err != nil {
					continue
				}
				if _, seen := found[norm]; !seen {
					found[norm] = hex.EncodeToString(raw)
				}
			}
		}
	}
	for _, alg := range digestPreference {
		if v, ok := found[alg]; ok {
			return domain.Checksum{Algorithm: alg, Value: v}
		}
	}
	return domain.Checksum{}
}
