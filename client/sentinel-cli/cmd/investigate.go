package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Submit and inspect scam investigations",
}

var submitCmd = &cobra.Command{
	Use:   "submit [message text]",
	Short: "Submit a suspicious message for investigation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		submitInvestigation(args[0])
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Fetch the current state of an investigation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		getInvestigation(args[0])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the session's investigations",
	Run: func(cmd *cobra.Command, args []string) {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		listInvestigations(page, limit)
	},
}

func init() {
	rootCmd.AddCommand(investigateCmd)
	investigateCmd.AddCommand(submitCmd)
	investigateCmd.AddCommand(statusCmd)
	investigateCmd.AddCommand(listCmd)
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("limit", 10, "page size")
}

func apiRequest(method, path string, body io.Reader) *http.Response {
	req, err := http.NewRequest(method, "http://"+serverAddr+path, body)
	if err != nil {
		log.Fatalf("Error building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Error calling investigation service: %v", err)
	}
	return resp
}

func submitInvestigation(text string) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		log.Fatalf("Error creating JSON payload: %v", err)
	}

	resp := apiRequest(http.MethodPost, "/api/v1/investigations", bytes.NewBuffer(payload))
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// 文本里没有可查实体，提交即终态，结论直接返回。
		fmt.Println("Nothing to investigate; verdict returned immediately:")
		printBody(resp.Body)
	case http.StatusAccepted:
		var result map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			log.Fatalf("Error decoding response: %v", err)
		}
		fmt.Printf("Investigation submitted!\nTask ID: %s\n", result["task_id"])
		fmt.Printf("To stream progress, run: sentinel-cli investigate watch %s\n", result["task_id"])
	default:
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("Failed to submit investigation, status code: %d, body: %s", resp.StatusCode, body)
	}
}

func getInvestigation(taskID string) {
	resp := apiRequest(http.MethodGet, "/api/v1/investigations/"+taskID, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("Failed to fetch investigation, status code: %d, body: %s", resp.StatusCode, body)
	}
	printBody(resp.Body)
}

func listInvestigations(page, limit int) {
	resp := apiRequest(http.MethodGet, fmt.Sprintf("/api/v1/investigations?page=%d&limit=%d", page, limit), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("Failed to list investigations, status code: %d, body: %s", resp.StatusCode, body)
	}
	printBody(resp.Body)
}

func printBody(r io.Reader) {
	raw, err := io.ReadAll(r)
	if err != nil {
		log.Fatalf("Error reading response: %v", err)
	}
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(prettyJSON.String())
}
