// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command envelopectl exercises the envelope/de-envelope pipeline,
// certificate-chain inspection, and capability listing from the shell.
package main

func main() {
	Execute()
}
