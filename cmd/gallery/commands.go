package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

// withApp opens the app for the duration of fn. Only fn's result reaches
// stdout; logs follow the command's stderr.
func withApp(cmd *cobra.Command, factory appFactory, fn func(a *app) (any, error)) error {
	a, err := factory(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	out, err := fn(a)
	if out != nil {
		if encErr := writeJSON(cmd.OutOrStdout(), out); encErr != nil {
			return encErr
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readImage(path string) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return image, nil
}

// report drops typed nil results so a failed call prints nothing
func report[T any](v *T, err error) (any, error) {
	if v == nil {
		return nil, err
	}
	return v, err
}

// mutationOutcome prints the failure report next to the returned error
func mutationOutcome(res *domain.MutationResult, err error) (any, error) {
	if err != nil {
		return domain.NewMutationResult(err), err
	}
	return res, nil
}

func newRecognizeCmd(factory appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "recognize IMAGE",
		Short: "Recognize the person in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readImage(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, factory, func(a *app) (any, error) {
				return report(a.svc.Recognize(cmd.Context(), image))
			})
		},
	}
}

func newSearchCmd(factory appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "search IMAGE",
		Short: "List gallery faces similar to the one in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readImage(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, factory, func(a *app) (any, error) {
				return report(a.svc.Search(cmd.Context(), image))
			})
		},
	}
}

func newRegisterCmd(factory appFactory) *cobra.Command {
	var (
		tags      []string
		locations []string
		notes     string
	)

	cmd := &cobra.Command{
		Use:   "register IMAGE NAME",
		Short: "Enroll the face in an image under a name",
		Long: `Enroll the face in an image under a name.

Examples:
  gallery register alice.jpg alice
  gallery register alice.jpg alice --tags staff,vip --locations lobby --notes "badge 12"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readImage(args[0])
			if err != nil {
				return err
			}
			req := domain.EnrollRequest{
				Name:      args[1],
				Tags:      tags,
				Locations: locations,
				Notes:     notes,
			}
			return withApp(cmd, factory, func(a *app) (any, error) {
				res, err := a.svc.Register(cmd.Context(), image, req)
				if err != nil {
					return nil, err
				}
				if res.Registration != nil && !res.Registration.Success {
					return res, fmt.Errorf("registration failed: %s", res.Registration.Error)
				}
				return res, nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tags stored with the enrollment")
	cmd.Flags().StringSliceVar(&locations, "locations", nil, "Locations stored with the enrollment")
	cmd.Flags().StringVar(&notes, "notes", "", "Free text notes")

	return cmd
}

// extractOutput is one line of the batch extract report
type extractOutput struct {
	File      string            `json:"file"`
	Signature *domain.Signature `json:"signature,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func newExtractCmd(factory appFactory) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "extract IMAGE...",
		Short: "Extract face signatures without touching the gallery",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
			}
			return withApp(cmd, factory, func(a *app) (any, error) {
				results := make([]extractOutput, len(args))

				g, ctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(concurrency)

				for i, path := range args {
					i, path := i, path // per-iteration copy; the module targets go 1.21 loop semantics
					g.Go(func() error {
						results[i].File = path

						image, err := readImage(path)
						if err != nil {
							results[i].Error = err.Error()
							return nil
						}

						sig, err := a.svc.Extract(ctx, image)
						if err != nil {
							results[i].Error = err.Error()
							return nil
						}
						results[i].Signature = sig
						return nil
					})
				}

				return results, g.Wait()
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of images extracted in parallel")

	return cmd
}

func newStatusCmd(factory appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gallery size, recognitions and extractor availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, factory, func(a *app) (any, error) {
				return a.svc.Status(cmd.Context()), nil
			})
		},
	}
}

func newListPeopleCmd(factory appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list-people",
		Short: "List enrolled people grouped by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, factory, func(a *app) (any, error) {
				people, err := a.svc.ListPeople(cmd.Context())
				if err != nil {
					return nil, err
				}
				return people, nil
			})
		},
	}
}

func newDeletePersonCmd(factory appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-person NAME",
		Short: "Delete every record of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, factory, func(a *app) (any, error) {
				return mutationOutcome(a.svc.Delete(cmd.Context(), args[0]))
			})
		},
	}
}

func newClearAllCmd(factory appFactory) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-all",
		Short: "Remove every identity and recognition log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the gallery without --yes")
			}
			return withApp(cmd, factory, func(a *app) (any, error) {
				return mutationOutcome(a.svc.ClearAll(cmd.Context()))
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the removal")

	return cmd
}
