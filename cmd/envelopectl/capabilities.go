// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/luxfi/envelope/codec"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the algorithm/mode pairs the active crypto provider supports",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(algorithmsByName))
		for name := range algorithmsByName {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ALGORITHM\tMODE\tAVAILABLE\tMIN KEY\tMAX KEY\tMIN IV\tMAX IV")
		for _, name := range names {
			algo := algorithmsByName[name]
			for _, mode := range []codec.Mode{codec.ModeNone, codec.ModeCBC, codec.ModePKC} {
				info, err := reg.QueryCapability(algo, mode)
				if err != nil || !info.Available {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\t%d\t%d\n",
					name, modeName(mode), info.Available,
					info.MinKeySize, info.MaxKeySize, info.MinIVSize, info.MaxIVSize)
			}
		}
		return w.Flush()
	},
}

func modeName(mode codec.Mode) string {
	for name, m := range modesByName {
		if m == mode {
			return name
		}
	}
	return "?"
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}
