package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAlbumsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "albums [query]",
		Short: "List library albums, optionally filtered by artist or title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			defer store.Close()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			albums, err := store.Albums(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(albums) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No albums found.")
				return nil
			}

			rows := make([][]string, 0, len(albums))
			for _, album := range albums {
				year := ""
				if album.Year > 0 {
					year = strconv.Itoa(album.Year)
				}
				sources := ""
				for _, source := range []string{"deezer", "spotify"} {
					if album.GetField(source+"_album_id") != "" {
						if sources != "" {
							sources += ", "
						}
						sources += source
					}
				}
				rows = append(rows, []string{
					strconv.FormatInt(album.ID, 10), album.Artist, album.Title,
					year, strconv.Itoa(len(album.Tracks)), sources,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Artist", "Title", "Year", "Tracks", "Matched"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
			return nil
		},
	}
}
