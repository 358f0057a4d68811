package server

import "crypto/rand"

// File identifiers are 8 characters drawn from the 64-symbol URL-safe
// alphabet, giving 64^8 possible ids. There is no pre-insert existence
// check; the primary key on files_meta turns the (negligible) residual
// collision risk into an insert error rather than a silent overwrite.
const (
	fileIDLen      = 8
	fileIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
)

func newFileID() (string, error) {
	b := make([]byte, fileIDLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// 64 symbols, so masking the low six bits keeps the draw uniform.
	for i := range b {
		b[i] = fileIDAlphabet[b[i]&63]
	}
	return string(b), nil
}
