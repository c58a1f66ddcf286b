package tree

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/scallionDB/cmd/util"
	"github.com/ValentinKolb/scallionDB/lib/tree"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [tree] [ref] [selector]",
		Short: "Reads the subtrees referenced by a selector",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, selector, err := parseQuery(args[1], args[2], tree.TreeReferences)
			if err != nil {
				return err
			}
			nodes, err := rpcClient.Tree(args[0]).GetTree(cmd.Context(), ref, selector)
			if err != nil {
				return err
			}
			return printJSON(nodes)
		},
	}
	attrsCmd = &cobra.Command{
		Use:   "attrs [tree] [ref] [selector]",
		Short: "Reads attributes of the nodes referenced by a selector",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, selector, err := parseQuery(args[1], args[2], tree.AttrReferences)
			if err != nil {
				return err
			}
			attrs, _ := cmd.Flags().GetString("attrs")
			views, err := rpcClient.Tree(args[0]).GetAttrs(cmd.Context(), ref, selector, util.ParseAttrList(attrs))
			if err != nil {
				return err
			}
			return printJSON(views)
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [tree] [ref] [selector] [subtree]",
		Short: "Inserts a subtree relative to the nodes referenced by a selector",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, selector, err := parseQuery(args[1], args[2], tree.TreeReferences)
			if err != nil {
				return err
			}
			subtree, err := util.ParseJSONArg("subtree", args[3])
			if err != nil {
				return err
			}
			n, err := rpcClient.Tree(args[0]).PutTree(cmd.Context(), ref, selector, subtree)
			if err != nil {
				return err
			}
			fmt.Printf("put %d subtree(s)\n", n)
			return nil
		},
	}
	putAttrsCmd = &cobra.Command{
		Use:   "put-attrs [tree] [ref] [selector] [attrs]",
		Short: "Sets attributes on the nodes referenced by a selector",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, selector, err := parseQuery(args[1], args[2], tree.AttrReferences)
			if err != nil {
				return err
			}
			raw, err := util.ParseJSONArg("attrs", args[3])
			if err != nil {
				return err
			}
			attrs, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("attrs must be a JSON object")
			}
			n, err := rpcClient.Tree(args[0]).PutAttrs(cmd.Context(), ref, selector, attrs)
			if err != nil {
				return err
			}
			fmt.Printf("updated %d node(s)\n", n)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [tree] [ref] [selector]",
		Short: "Deletes the subtrees referenced by a selector",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, selector, err := parseQuery(args[1], args[2], tree.TreeReferences)
			if err != nil {
				return err
			}
			n, err := rpcClient.Tree(args[0]).DelTree(cmd.Context(), ref, selector)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d subtree(s)\n", n)
			return nil
		},
	}
	delAttrsCmd = &cobra.Command{
		Use:   "delete-attrs [tree] [ref] [selector]",
		Short: "Deletes attributes of the nodes referenced by a selector",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, selector, err := parseQuery(args[1], args[2], tree.AttrReferences)
			if err != nil {
				return err
			}
			attrs, _ := cmd.Flags().GetString("attrs")
			n, err := rpcClient.Tree(args[0]).DelAttrs(cmd.Context(), ref, selector, util.ParseAttrList(attrs))
			if err != nil {
				return err
			}
			fmt.Printf("updated %d node(s)\n", n)
			return nil
		},
	}
	loadCmd = &cobra.Command{
		Use:   "load [tree] [path]",
		Short: "Loads a tree from a file on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := rpcClient.Tree(args[0]).LoadTree(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d node(s)\n", n)
			return nil
		},
	}
	saveCmd = &cobra.Command{
		Use:   "save [tree]",
		Short: "Persists a tree to its file on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rpcClient.Tree(args[0]).SaveTree(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("save requested")
			return nil
		},
	}
	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Lists the names of all trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := rpcClient.Trees(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(names)
		},
	}
)

func init() {
	key := "attrs"
	attrsCmd.Flags().String(key, "*", util.WrapString("Comma separated attribute names, * selects all"))
	delAttrsCmd.Flags().String(key, "*", util.WrapString("Comma separated attribute names, * deletes all but the id"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseQuery parses the reference and the JSON selector arguments
func parseQuery(refArg, selectorArg string, allowed []tree.Reference) (tree.Reference, interface{}, error) {
	ref, err := tree.ParseReference(refArg, allowed)
	if err != nil {
		return "", nil, err
	}
	selector, err := util.ParseJSONArg("selector", selectorArg)
	if err != nil {
		return "", nil, err
	}
	return ref, selector, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
