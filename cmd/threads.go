package cmd

import (
	"fmt"

	"github.com/coursechat/coursechat/pkg/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List conversation threads in a class",
	RunE:  runThreads,
}

func init() {
	threadsCmd.Flags().String("class", "", "class id to list threads for")
	threadsCmd.MarkFlagRequired("class")
	viper.BindPFlag("threads.class", threadsCmd.Flags().Lookup("class"))

	rootCmd.AddCommand(threadsCmd)
}

func runThreads(cmd *cobra.Command, args []string) error {
	client := newAPIClient()
	classID := viper.GetString("threads.class")

	resp, err := api.Explode(client.ListThreads(cmd.Context(), classID))
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}

	if len(resp.Threads) == 0 {
		fmt.Println("No threads in this class.")
		return nil
	}

	for _, t := range resp.Threads {
		visibility := "private"
		if t.Public {
			visibility = "public"
		}
		fmt.Printf("%s  %s  assistant=%s  created=%s\n",
			t.ID, visibility, t.AssistantID, t.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
