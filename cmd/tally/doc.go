// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Tally prints election or circuit results as terminal tables.

It reads the same database as the API server and applies the same sealing
rules: circuit results need a closed circuit, and final election results
need every circuit closed.

Usage:

	tally [-env .env] [-d DATABASE_URL] [-t postgres|pgx|sqlite] [-e election] [-c circuit]

Without -e the active election is reported. With -c only that circuit is
reported.
*/
package main
