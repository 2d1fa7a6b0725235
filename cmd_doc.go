package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"respec/internal/document"
	"respec/internal/readers"
)

func newDocCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Store and render structured documents",
	}
	cmd.AddCommand(
		docStoreCmd(a),
		docShowCmd(a),
		docListCmd(a),
		docDeleteCmd(a),
		docPlaceholderCmd(a),
		docFormatCmd(),
		docOutlineCmd(a),
	)
	return cmd
}

func refFromArgs(kindArg, name, container string) (document.Ref, error) {
	kind, err := document.KindFromString(kindArg)
	if err != nil {
		return document.Ref{}, err
	}
	return document.Ref{Kind: kind, Container: container, Name: name}, nil
}

func docStoreCmd(a *app) *cobra.Command {
	var container, file string
	cmd := &cobra.Command{
		Use:   "store <kind> <name>",
		Short: "Parse markdown and store it, replacing any previous version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFromArgs(args[0], args[1], container)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			if _, err := a.store.StoreDocument(cmd.Context(), ref, text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	cmd.Flags().StringVar(&file, "file", "-", "Markdown file (- for stdin)")
	return cmd
}

func docShowCmd(a *app) *cobra.Command {
	var container string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <kind> <name>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFromArgs(args[0], args[1], container)
			if err != nil {
				return err
			}
			if asJSON {
				doc, err := a.store.GetRecord(cmd.Context(), ref)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			}
			text, err := a.store.GetDocument(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the parsed record as JSON")
	return cmd
}

func docListCmd(a *app) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List document names of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := document.KindFromString(args[0])
			if err != nil {
				return err
			}
			names, err := a.store.ListDocuments(cmd.Context(), kind, container)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	return cmd
}

func docDeleteCmd(a *app) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "delete <kind> <name>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFromArgs(args[0], args[1], container)
			if err != nil {
				return err
			}
			return a.store.DeleteDocument(cmd.Context(), ref)
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	return cmd
}

func docPlaceholderCmd(a *app) *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "placeholder <kind> <name>",
		Short: "Store a document with every field defaulted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFromArgs(args[0], args[1], container)
			if err != nil {
				return err
			}
			doc, err := a.store.CreatePlaceholder(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), document.Build(doc))
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	return cmd
}

// docFormatCmd rewrites markdown into canonical form without touching the
// store. The kind is taken from the title line unless given.
func docFormatCmd() *cobra.Command {
	var kindArg, file string
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Rewrite document markdown in canonical form",
		Args:  cobra.NoArgs,
		// No store needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var doc document.Document
			if kindArg == "" {
				doc, err = document.ParseAny(text)
			} else {
				var kind document.Kind
				kind, err = document.KindFromString(kindArg)
				if err == nil {
					doc, err = document.Parse(kind, text)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), document.Build(doc))
			return nil
		},
	}
	cmd.Flags().StringVar(&kindArg, "kind", "", "Document kind (default: from the title line)")
	cmd.Flags().StringVar(&file, "file", "-", "Markdown file (- for stdin)")
	return cmd
}

// docOutlineCmd summarises a stored document, or markdown from --file when
// no document is named.
func docOutlineCmd(a *app) *cobra.Command {
	var container, file string
	cmd := &cobra.Command{
		Use:   "outline [<kind> <name>]",
		Short: "Print the section structure of document markdown",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			var err error
			if len(args) == 2 {
				var ref document.Ref
				if ref, err = refFromArgs(args[0], args[1], container); err != nil {
					return err
				}
				text, err = a.store.GetDocument(cmd.Context(), ref)
			} else {
				text, err = readInput(cmd, file)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, readers.ReadMarkdown(text))
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "Owning project for nested documents")
	cmd.Flags().StringVar(&file, "file", "-", "Markdown file (- for stdin)")
	return cmd
}
