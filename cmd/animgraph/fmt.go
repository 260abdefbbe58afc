package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/spf13/cobra"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <name>",
	Short: "Print a controller in canonical form",
	Long:  `Compiles the controller and writes it back in canonical text form. With --write the definition is replaced in its backend.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := engine(cmd)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := eng.Format(args[0], &buf); err != nil {
			return err
		}

		write, _ := cmd.Flags().GetBool("write")
		if !write {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		store, ok := eng.Loader().(ports.DefinitionStore)
		if !ok {
			return fmt.Errorf("backend %q is read-only", options(cmd).Backend)
		}
		return store.SaveDefinition(context.Background(), args[0], buf.Bytes())
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().BoolP("write", "w", false, "Write the result back to the definition")
}
