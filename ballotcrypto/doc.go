// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ballotcrypto provides the stateless primitives behind secure polls.

# Keys

A Sealer derives two independent keys from the configured secret with HKDF-SHA256:

	sealer, err := ballotcrypto.NewSealer(cfg.VoteEncryptionKey)

An empty secret returns ErrMissingSecret. Rotating the secret makes every
previously issued verification token unverifiable and every stored ballot
undecryptable; there is no rotation support.

# Ballots

Ballots are sealed with XChaCha20-Poly1305 after merging in a 128-bit salt:

	ciphertext, salt, err := sealer.EncryptBallot(data)
	hash := ballotcrypto.VerificationHash(data, salt)
	token := sealer.VerificationToken(ballotID, hash)

VerificationHash covers poll id, option id and salt only. It never sees the
voter identity or the ciphertext.

# Tallies

A Tally is a JSON object of option id to {count, hash}. UpdateTally
increments one option and chains its hash; CountsFromTally drops the hashes.
*/
package ballotcrypto
