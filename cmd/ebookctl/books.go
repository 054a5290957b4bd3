package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/library"
	"github.com/mmcdole/ebookctl/internal/settings"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List books known to the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return listBooks(cmd.Context(), app)
	},
}

func listBooks(ctx context.Context, app *App) error {
	if err := app.loadBooks(ctx); err != nil {
		return fmt.Errorf("error listing books: %w", err)
	}
	books := app.Store.Books()
	if len(books) == 0 {
		fmt.Println("No books found.")
		return nil
	}
	writeBooks(os.Stdout, books)
	return nil
}

func writeBooks(w io.Writer, books []domain.Book) {
	table := newTable(w, "ID", "Title", "Status", "Stage", "Source")
	for _, b := range books {
		table.Append([]string{
			b.ID,
			b.Title,
			statusText(string(b.Status)),
			orDash(b.CurrentStage),
			b.SourcePath,
		})
	}
	table.Render()
}

var showCmd = &cobra.Command{
	Use:   "show <book>",
	Short: "Show a book with its settings, preview and output files",
	Long:  `Shows one book. <book> is an id or a fuzzy title match.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		book, err := app.resolveBook(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		detail, err := app.Library.Select(cmd.Context(), book.ID)
		if err != nil {
			return err
		}
		writeDetail(os.Stdout, detail)
		return nil
	},
}

func writeDetail(w io.Writer, d *library.Detail) {
	b := d.Book
	form := settings.Project(b)
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s  %s\n", bold(b.Title), statusText(string(b.Status)))
	fmt.Fprintf(w, "  %s\n", b.Meta())
	fmt.Fprintf(w, "  source: %s\n\n", b.SourcePath)

	fmt.Fprintln(w, bold("Settings"))
	fmt.Fprintf(w, "  language:     %s\n", form.OCRLanguage)
	fmt.Fprintf(w, "  optimize:     %s\n", form.OptimizeMode)
	fmt.Fprintf(w, "  on error:     %s\n", form.ErrorPolicy)
	fmt.Fprintf(w, "  front cover:  %s\n", orDash(form.FrontCover))
	fmt.Fprintf(w, "  back cover:   %s\n\n", orDash(form.BackCover))

	fmt.Fprintln(w, bold("Preview"))
	if d.Preview.IsEmpty() {
		fmt.Fprintln(w, "  no source images")
	} else {
		fmt.Fprintf(w, "  first: %s\n", orDash(strings.Join(d.Preview.Front, ", ")))
		fmt.Fprintf(w, "  last:  %s\n", orDash(strings.Join(d.Preview.Back, ", ")))
	}

	if len(d.Artifacts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Output"))
		for _, a := range d.Artifacts {
			fmt.Fprintf(w, "  %-12s %s\n", a.Name, a.URL)
		}
	}
}

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a directory of scanned pages as a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		book, err := app.Library.AddBook(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s (%s)\n", color.GreenString("Added:"), book.Title, book.ID)
		return nil
	},
}

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <book>",
	Short: "Delete a book from the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		book, err := app.resolveBook(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if !deleteYes {
			ok, err := confirm(os.Stdin, fmt.Sprintf("Delete %q (%s)? [y/N] ", book.Title, book.ID))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := app.Library.DeleteBook(cmd.Context(), book.ID); err != nil {
			return err
		}
		fmt.Println(app.Store.Message().Text)
		return nil
	},
}

// confirm asks a yes/no question on r
func confirm(r io.Reader, prompt string) (bool, error) {
	fmt.Print(prompt)
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

var settingsFlags struct {
	language    string
	optimize    string
	errorPolicy string
	frontCover  string
	backCover   string
}

var settingsCmd = &cobra.Command{
	Use:   "settings <book>",
	Short: "Show or change a book's processing settings",
	Long: `Without flags, prints the settings. With flags, changes only the named
fields. Pass an empty cover value (--front-cover "") to clear it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		book, err := app.resolveBook(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		form, changed, err := applySettingsFlags(cmd, settings.Project(book))
		if err != nil {
			return err
		}
		if changed {
			updated, err := app.Settings.SaveFor(cmd.Context(), book.ID, form)
			if err != nil {
				return err
			}
			if updated != nil {
				book = *updated
			}
			fmt.Println(app.Store.Message().Text)
		}
		writeDetail(os.Stdout, &library.Detail{Book: book})
		return nil
	},
}

// applySettingsFlags overlays the flags the operator set onto form
func applySettingsFlags(cmd *cobra.Command, form settings.Form) (settings.Form, bool, error) {
	flags := cmd.Flags()
	changed := false

	choose := func(name, value string, options []string, dst *string) error {
		if !flags.Changed(name) {
			return nil
		}
		if !contains(options, value) {
			return fmt.Errorf("--%s must be one of %s", name, strings.Join(options, ", "))
		}
		*dst = value
		changed = true
		return nil
	}
	page := func(name, value string, dst *string) error {
		if !flags.Changed(name) {
			return nil
		}
		value = strings.TrimSpace(value)
		if value != "" {
			if _, err := strconv.Atoi(value); err != nil {
				return fmt.Errorf("--%s must be a page index", name)
			}
		}
		*dst = value
		changed = true
		return nil
	}

	if err := choose("language", settingsFlags.language, settings.Languages, &form.OCRLanguage); err != nil {
		return form, false, err
	}
	if err := choose("optimize", settingsFlags.optimize, settings.OptimizeModes, &form.OptimizeMode); err != nil {
		return form, false, err
	}
	if err := choose("error-policy", settingsFlags.errorPolicy, settings.ErrorPolicies, &form.ErrorPolicy); err != nil {
		return form, false, err
	}
	if err := page("front-cover", settingsFlags.frontCover, &form.FrontCover); err != nil {
		return form, false, err
	}
	if err := page("back-cover", settingsFlags.backCover, &form.BackCover); err != nil {
		return form, false, err
	}
	return form, changed, nil
}

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&settingsFlags.language, "language", "", "OCR language ("+strings.Join(settings.Languages, ", ")+")")
	cmd.Flags().StringVar(&settingsFlags.optimize, "optimize", "", "Optimize mode ("+strings.Join(settings.OptimizeModes, ", ")+")")
	cmd.Flags().StringVar(&settingsFlags.errorPolicy, "error-policy", "", "Page error policy ("+strings.Join(settings.ErrorPolicies, ", ")+")")
	cmd.Flags().StringVar(&settingsFlags.frontCover, "front-cover", "", "Front cover page index, empty to clear")
	cmd.Flags().StringVar(&settingsFlags.backCover, "back-cover", "", "Back cover page index, empty to clear")
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

var openCmd = &cobra.Command{
	Use:   "open <book> [file]",
	Short: "Open an output file of a finished book in the viewer",
	Long:  `Opens book.pdf unless another output file is named.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		_, artifact, err := findArtifact(cmd.Context(), app, args)
		if err != nil {
			return err
		}
		return app.Launcher.Open(artifact.URL)
	},
}

var downloadOut string

var downloadCmd = &cobra.Command{
	Use:   "download <book> [file]",
	Short: "Download an output file of a finished book",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		book, artifact, err := findArtifact(cmd.Context(), app, args)
		if err != nil {
			return err
		}

		dest := downloadOut
		if dest == "" {
			dest = artifact.Name
		}
		if err := downloadTo(cmd.Context(), app, book.ID, artifact.Name, dest); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", color.GreenString("Saved"), dest)
		return nil
	},
}

func downloadTo(ctx context.Context, app *App, bookID, name, dest string) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := app.Client.DownloadOutput(ctx, bookID, name, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("download %s: %w", name, err)
	}
	app.Logger.Info("downloaded output", "book", bookID, "file", name, "bytes", n, "dest", dest)
	return nil
}

// findArtifact resolves the book argument and the optional file name
func findArtifact(ctx context.Context, app *App, args []string) (domain.Book, library.Artifact, error) {
	book, err := app.resolveBook(ctx, args[0])
	if err != nil {
		return domain.Book{}, library.Artifact{}, err
	}
	detail, err := app.Library.Select(ctx, book.ID)
	if err != nil {
		return domain.Book{}, library.Artifact{}, err
	}
	if len(detail.Artifacts) == 0 {
		return detail.Book, library.Artifact{}, fmt.Errorf("%s has no output files (status %s)", detail.Book.Title, detail.Book.Status)
	}

	name := domain.ArtifactPDF
	if len(args) > 1 {
		name = args[1]
	}
	for _, a := range detail.Artifacts {
		if a.Name == name {
			return detail.Book, a, nil
		}
	}
	return detail.Book, library.Artifact{}, fmt.Errorf("unknown output file %q; want one of %s", name, strings.Join(domain.ArtifactNames(), ", "))
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")

	addSettingsFlags(settingsCmd)

	downloadCmd.Flags().StringVarP(&downloadOut, "output", "o", "", "Destination path (default: the file name)")

	rootCmd.AddCommand(listCmd, showCmd, addCmd, deleteCmd, settingsCmd, openCmd, downloadCmd)
}
