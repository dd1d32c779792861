// Package secure keeps secret key material in memguard enclaves.
//
// Bytes handed to NewSecureBuffer are copied into an encrypted enclave and
// the caller's slice is wiped. Plaintext only exists inside a LockedBuffer
// for the duration of a Use callback or an explicit Open/Destroy pair:
//
//	buf, err := secure.NewSecureBuffer(keyBytes)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	err = buf.Use(func(key []byte) error {
//	    return seal(key, plaintext)
//	})
//
// On Linux, mlock is subject to RLIMIT_MEMLOCK. memguard falls back to
// ordinary memory when locking fails, so callers do not need to handle it.
//
// Call memguard.Purge at process exit to wipe every enclave key.
package secure
