// Package token generates opaque random tokens and the one-way digests that
// are stored in their place.
//
// A password reset flow hands the plain token to the user and persists only
// Hash(token); verification hashes the presented value and compares it to the
// stored digest with Equal, which runs in constant time.
//
//	plain, err := token.Random(20) // 40 hex characters
//	if err != nil {
//		// handle error
//	}
//	stored := token.Hash(plain)
//	ok := token.Equal(token.Hash(presented), stored)
package token
