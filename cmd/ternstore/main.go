package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternstore/ternstore/internal/config"
	"github.com/ternstore/ternstore/internal/query"
	"github.com/ternstore/ternstore/internal/server"
	"github.com/ternstore/ternstore/internal/storage"
	"github.com/ternstore/ternstore/internal/store"
	"github.com/ternstore/ternstore/internal/term"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "ternstore",
		Short: "A lazy triple-pattern query engine over BadgerDB",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML configuration file")

	rootCmd.AddCommand(serveCmd(), statsCmd(), queryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			tripleStore, cfg, err := openStore()
			if err != nil {
				return err
			}
			defer tripleStore.Close()

			return server.NewServer(tripleStore, cfg.ListenAddr).Start()
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			tripleStore, _, err := openStore()
			if err != nil {
				return err
			}
			defer tripleStore.Close()

			count, err := tripleStore.Count()
			if err != nil {
				return err
			}

			fmt.Printf("Triples: %d\n", count)
			return nil
		},
	}
}

func queryCmd() *cobra.Command {
	var subject, predicate, object string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate a single triple pattern",
		Long: `Evaluate a single triple pattern against the store. Positions left
unset become variables and are selected; set positions filter. Subjects
and predicates are IRIs; an object containing "://" is read as an IRI,
anything else as a plain literal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tripleStore, _, err := openStore()
			if err != nil {
				return err
			}
			defer tripleStore.Close()

			plan, selection, err := buildPatternPlan(tripleStore, subject, predicate, object)
			if err != nil {
				return err
			}

			result, err := query.NewEngine(tripleStore).Select(plan, selection)
			if err != nil {
				return err
			}

			for _, row := range result.Bindings {
				parts := make([]string, 0, len(result.Head))
				for _, name := range result.Head {
					parts = append(parts, fmt.Sprintf("%s = %s", name, row[name].String()))
				}
				fmt.Println(strings.Join(parts, "\t"))
			}
			fmt.Printf("%d solutions\n", len(result.Bindings))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "subject IRI to match")
	cmd.Flags().StringVar(&predicate, "predicate", "", "predicate IRI to match")
	cmd.Flags().StringVar(&object, "object", "", "object IRI or literal value to match")
	return cmd
}

func openStore() (*store.TripleStore, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Opening database at: %s", cfg.DataDir)
	badgerStorage, err := storage.NewBadgerStorage(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return store.NewTripleStore(badgerStorage), cfg, nil
}

// buildPatternPlan turns the flag values into a one-pattern plan.
// Constant IRIs with a namespace the store never interned get a key no
// stored node carries, so the pattern matches nothing.
func buildPatternPlan(s *store.TripleStore, subject, predicate, object string) (query.Plan, []string, error) {
	reader, err := s.Reader()
	if err != nil {
		return query.Plan{}, nil, err
	}
	defer reader.Close()

	resolve := func(iri string) (term.Node, error) {
		prefix, value, err := term.SplitIRI(iri)
		if err != nil {
			return term.Node{}, err
		}
		key, err := reader.NamespaceKey(prefix)
		if err == store.ErrNamespaceNotFound {
			return term.Node{Namespace: math.MaxUint64, Value: value}, nil
		}
		if err != nil {
			return term.Node{}, err
		}
		return term.Node{Namespace: key, Value: value}, nil
	}

	var pattern query.TriplePatternNode
	var variables []string

	if subject == "" {
		pattern.Subject = query.Variable[term.Subject](len(variables))
		variables = append(variables, "s")
	} else {
		node, err := resolve(subject)
		if err != nil {
			return query.Plan{}, nil, err
		}
		pattern.Subject = query.Constant(term.NamedSubject(node))
	}

	if predicate == "" {
		pattern.Predicate = query.Variable[term.Node](len(variables))
		variables = append(variables, "p")
	} else {
		node, err := resolve(predicate)
		if err != nil {
			return query.Plan{}, nil, err
		}
		pattern.Predicate = query.Constant(node)
	}

	if object == "" {
		pattern.Object = query.Variable[term.Object](len(variables))
		variables = append(variables, "o")
	} else if strings.Contains(object, "://") {
		node, err := resolve(object)
		if err != nil {
			return query.Plan{}, nil, err
		}
		pattern.Object = query.Constant(term.NamedObject(node))
	} else {
		pattern.Object = query.Constant(term.LiteralObject(term.SimpleLiteral(object)))
	}

	plan := query.Plan{Entrypoint: pattern, Variables: variables}
	return plan, variables, nil
}
