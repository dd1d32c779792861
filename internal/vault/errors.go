package vault

import "errors"

// ErrKeyExists is returned by GenerateKey when a key is already stored and
// overwrite was not requested.
var ErrKeyExists = errors.New("secret key already exists")
