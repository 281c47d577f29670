// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/envelope/capability"
)

func TestCapabilitiesCommandListsAES(t *testing.T) {
	reg = capability.NewDefaultRegistry()

	var out bytes.Buffer
	capabilitiesCmd.SetOut(&out)
	require.NoError(t, capabilitiesCmd.RunE(capabilitiesCmd, nil))
	require.Contains(t, out.String(), "aes")
}
