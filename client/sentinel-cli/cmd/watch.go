package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [task-id]",
	Short: "Stream real-time progress of a single investigation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		watchProgress(args[0])
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Stream finished verdicts for the whole session",
	Run: func(cmd *cobra.Command, args []string) {
		watchResults()
	},
}

func init() {
	investigateCmd.AddCommand(watchCmd)
	investigateCmd.AddCommand(resultsCmd)
}

// watchProgress 订阅单个任务的进度频道，服务端在转发终态事件后关闭连接。
func watchProgress(taskID string) {
	streamSocket(url.URL{
		Scheme:   "ws",
		Host:     serverAddr,
		Path:     "/ws/progress/" + taskID,
		RawQuery: "token=" + url.QueryEscape(authToken),
	})
}

func watchResults() {
	streamSocket(url.URL{
		Scheme:   "ws",
		Host:     serverAddr,
		Path:     "/ws/results",
		RawQuery: "token=" + url.QueryEscape(authToken),
	})
}

func streamSocket(u url.URL) {
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	fmt.Println("WebSocket connected. Waiting for events...")

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}

		// Pretty print the JSON output
		var prettyJSON bytes.Buffer
		if err := json.Indent(&prettyJSON, message, "", "  "); err != nil {
			log.Printf("Error formatting JSON: %v. Raw message: %s", err, message)
		} else {
			fmt.Println(prettyJSON.String())
		}
	}
}
