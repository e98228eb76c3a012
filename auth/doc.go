// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides session tokens and password checks.

# Session Tokens

Sessions are HS256 JWTs signed with the configured secret:

	token, err := auth.IssueToken(secret, auth.Claims{
		Role: models.RoleVoter,
		RegisteredClaims: jwt.RegisteredClaims{Subject: cc},
	}, time.Hour, time.Now())

	claims, err := auth.ParseToken(secret, token)

ParseToken rejects other signing methods, expired tokens and tokens without
a subject or role, always with ErrInvalidToken.

A voter token carries the citizen credential and the optional circuit the
citizen declared at login. The assigned circuit is never stored in the token;
it is read from the database when the vote is cast.

# Court Password

The electoral court logs in with a user name and a password checked against
a bcrypt hash from the configuration:

	hash, err := auth.HashPassword("secret")
	err = auth.CheckPassword(hash, "secret")
*/
package auth
