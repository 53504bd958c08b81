package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes read from crypto/rand. It panics if
// the system random source fails, which is not recoverable on a device.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place. Used for passphrases and decoded key
// material once they are no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
