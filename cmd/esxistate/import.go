package main

import (
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
)

type importOptions struct {
	URL         string
	Destination string
	Branch      string
	Depth       int
}

// newImportCmd fetches a git repository of plan files so teams can share
// a versioned plan catalog.
func newImportCmd() *cobra.Command {
	opts := importOptions{}

	cmd := &cobra.Command{
		Use:   "import <repository-url>",
		Short: "Clone a git repository of plan files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.URL = args[0]
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Destination, "dest", "d", "", "Destination directory (default: repository name)")
	cmd.Flags().StringVarP(&opts.Branch, "branch", "b", "", "Branch to check out")
	cmd.Flags().IntVar(&opts.Depth, "depth", 1, "Clone depth; 0 for full history")

	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	dest := opts.Destination
	if dest == "" {
		base := filepath.Base(opts.URL)
		if ext := filepath.Ext(base); ext == ".git" {
			base = base[:len(base)-len(ext)]
		}
		dest = base
	}

	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("destination %s already exists", dest)
	}

	cloneOpts := &git.CloneOptions{URL: opts.URL}
	if opts.Depth > 0 {
		cloneOpts.Depth = opts.Depth
	}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOpts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(cmd.Context(), dest, false, cloneOpts); err != nil {
		return fmt.Errorf("cloning %s: %w", opts.URL, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s\n", opts.URL, dest)
	return nil
}
