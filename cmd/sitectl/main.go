// Package main implements the sitectl CLI for manual operations against the sited HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hikarilabs/sited/internal/monitor"
)

var (
	// serverURL is the base URL for the sited HTTP server
	serverURL string
	// authToken is the API bearer token, empty when the server runs open
	authToken string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "CLI for sited HTTP server operations",
	Long: `sitectl is a command-line interface for interacting with the sited HTTP server.
It provides commands for managing todos and tickets, checking lift levels,
checking server health and watching a live stats dashboard.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8700", "sited server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("SITED_TOKEN"), "API bearer token (defaults to $SITED_TOKEN)")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(big3Cmd)
	rootCmd.AddCommand(syndicateCmd)
	rootCmd.AddCommand(statsCmd)

	syndicateCmd.AddCommand(syndicateRunCmd)

	todoCmd.AddCommand(todoAddCmd)
	todoCmd.AddCommand(todoListCmd)
	todoCmd.AddCommand(todoDoneCmd)
	todoAddCmd.Flags().StringVar(&todoDueOn, "due", time.Now().Format("2006-01-02"), "due date (YYYY-MM-DD)")
	todoAddCmd.Flags().StringVar(&todoNote, "note", "", "free-form note")
	todoListCmd.Flags().BoolVar(&todoPending, "pending", false, "only list todos not yet done")

	ticketCmd.AddCommand(ticketListCmd)
	ticketCmd.AddCommand(ticketImportCmd)
	ticketCmd.AddCommand(ticketPDFCmd)
	ticketPDFCmd.Flags().StringVarP(&ticketPDFOut, "output", "o", "tickets.pdf", "output file")

	big3Cmd.Flags().StringVar(&big3Sex, "sex", "male", "sex (male or female)")
	big3Cmd.Flags().Float64Var(&big3Bodyweight, "bodyweight", 0, "bodyweight in kg")
	big3Cmd.Flags().Float64Var(&big3Squat, "squat", 0, "squat 1RM in kg")
	big3Cmd.Flags().Float64Var(&big3Bench, "bench", 0, "bench press 1RM in kg")
	big3Cmd.Flags().Float64Var(&big3Deadlift, "deadlift", 0, "deadlift 1RM in kg")

	statsCmd.Flags().DurationVar(&statsInterval, "interval", 5*time.Second, "refresh interval")
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check sited server health",
	Long: `Check the health status of the sited HTTP server.

Examples:
  # Check health
  sitectl health

  # Check health on a different server
  sitectl health --server http://localhost:8800`,
	RunE: runHealth,
}

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage todos",
}

var (
	todoDueOn   string
	todoNote    string
	todoPending bool
)

var todoAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a todo",
	Long: `Add a todo.

Examples:
  # Due today
  sitectl todo add "water the plants"

  # Due later, with a note
  sitectl todo add "renew passport" --due 2026-09-15 --note "bring photos"`,
	Args: cobra.ExactArgs(1),
	RunE: runTodoAdd,
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	RunE:  runTodoList,
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a todo as done",
	Args:  cobra.ExactArgs(1),
	RunE:  runTodoDone,
}

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Manage massage tickets",
}

var (
	ticketPDFOut string
)

var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets with remaining uses",
	RunE:  runTicketList,
}

var ticketImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Bulk-issue tickets from a CSV file or stdin",
	Long: `Bulk-issue tickets from a CSV file or stdin.

Each line is holder,total_uses[,expires_at] with expires_at in RFC 3339.
Rejected lines are reported per line number; a partial import still
issues the valid tickets.

Examples:
  # Import a file
  sitectl ticket import tickets.csv

  # Import from stdin
  cat tickets.csv | sitectl ticket import -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTicketImport,
}

var ticketPDFCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Download the printable ticket sheet",
	RunE:  runTicketPDF,
}

var (
	big3Sex        string
	big3Bodyweight float64
	big3Squat      float64
	big3Bench      float64
	big3Deadlift   float64
)

var big3Cmd = &cobra.Command{
	Use:   "big3",
	Short: "Rate squat, bench and deadlift against bodyweight standards",
	Long: `Rate squat, bench and deadlift against bodyweight ratio standards.

Examples:
  sitectl big3 --bodyweight 75 --squat 140 --bench 100 --deadlift 180`,
	RunE: runBig3,
}

var syndicateCmd = &cobra.Command{
	Use:   "syndicate",
	Short: "Control the content syndication pipeline",
}

var syndicateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger one syndication sync now",
	Long: `Trigger one syndication sync now instead of waiting for the next
scheduled run. Prints the per-run report.`,
	RunE: runSyndicate,
}

var statsInterval time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Watch a live dashboard of todo, quiz and ticket stats",
	RunE:  runStats,
}

// CreateTodoRequest matches internal/httpapi CreateTodoRequest
type CreateTodoRequest struct {
	Title string `json:"title"`
	Note  string `json:"note,omitempty"`
	DueOn string `json:"due_on"`
}

// Todo matches internal/todo Todo
type Todo struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Note  string    `json:"note,omitempty"`
	DueOn time.Time `json:"due_on"`
	Done  bool      `json:"done"`
}

// Ticket matches internal/ticket Ticket
type Ticket struct {
	ID        string     `json:"id"`
	Holder    string     `json:"holder"`
	TotalUses int        `json:"total_uses"`
	Remaining int        `json:"remaining"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ImportResult matches internal/ticket ImportResult
type ImportResult struct {
	Imported int      `json:"imported"`
	Tickets  []Ticket `json:"tickets,omitempty"`
	Errors   []struct {
		Line    int    `json:"line"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// Big3Request matches internal/big3 Input
type Big3Request struct {
	Sex        string  `json:"sex"`
	Bodyweight float64 `json:"bodyweight"`
	Squat      float64 `json:"squat"`
	Bench      float64 `json:"bench"`
	Deadlift   float64 `json:"deadlift"`
}

// Big3Response matches internal/big3 Result
type Big3Response struct {
	Squat    LiftResult `json:"squat"`
	Bench    LiftResult `json:"bench"`
	Deadlift LiftResult `json:"deadlift"`
	Total    float64    `json:"total"`
	Overall  string     `json:"overall"`
}

// LiftResult matches internal/big3 LiftResult
type LiftResult struct {
	Weight      float64 `json:"weight"`
	Ratio       float64 `json:"ratio"`
	Level       string  `json:"level"`
	NextLevelAt float64 `json:"next_level_at,omitempty"`
}

// SyndicateReport matches internal/syndicate PublishReport
type SyndicateReport struct {
	Synced    int           `json:"synced"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Published []string      `json:"published,omitempty"`
}

// HealthResponse matches internal/httpapi handleHealth
type HealthResponse struct {
	Status string `json:"status"`
}

// apiRequest sends a JSON request to the sited API and decodes the
// response into out (when out is non-nil). Non-2xx responses become
// errors carrying the response body.
func apiRequest(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		reqJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqJSON)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	var healthResp HealthResponse
	if err := apiRequest("GET", "/health", nil, &healthResp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to reach %s: %v\n", serverURL, err)
		return err
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

// runTodoAdd handles the todo add command
func runTodoAdd(cmd *cobra.Command, args []string) error {
	req := CreateTodoRequest{
		Title: args[0],
		Note:  todoNote,
		DueOn: todoDueOn,
	}
	var created Todo
	if err := apiRequest("POST", "/api/v1/todos", req, &created); err != nil {
		return err
	}
	fmt.Printf("Created %s (due %s)\n", created.ID, created.DueOn.Format("2006-01-02"))
	return nil
}

// runTodoList handles the todo list command
func runTodoList(cmd *cobra.Command, args []string) error {
	path := "/api/v1/todos"
	if todoPending {
		path += "?done=false"
	}
	var todos []Todo
	if err := apiRequest("GET", path, nil, &todos); err != nil {
		return err
	}
	if len(todos) == 0 {
		fmt.Println("No todos.")
		return nil
	}
	for _, t := range todos {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Printf("[%s] %s  %s  %s\n", mark, t.DueOn.Format("2006-01-02"), t.ID, t.Title)
	}
	return nil
}

// runTodoDone handles the todo done command
func runTodoDone(cmd *cobra.Command, args []string) error {
	var updated Todo
	if err := apiRequest("POST", "/api/v1/todos/"+args[0]+"/done", nil, &updated); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", updated.Title)
	return nil
}

// runTicketList handles the ticket list command
func runTicketList(cmd *cobra.Command, args []string) error {
	var tickets []Ticket
	if err := apiRequest("GET", "/api/v1/tickets", nil, &tickets); err != nil {
		return err
	}
	if len(tickets) == 0 {
		fmt.Println("No tickets.")
		return nil
	}
	for _, t := range tickets {
		expiry := ""
		if t.ExpiresAt != nil {
			expiry = "  expires " + t.ExpiresAt.Format("2006-01-02")
		}
		fmt.Printf("%s  %s  %d/%d left%s\n", t.ID, t.Holder, t.Remaining, t.TotalUses, expiry)
	}
	return nil
}

// runTicketImport handles the ticket import command
func runTicketImport(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	if len(content) == 0 {
		return fmt.Errorf("no CSV content to import")
	}

	url := serverURL + "/api/v1/tickets/import"
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/csv")
	if authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Imported %d ticket(s)\n", result.Imported)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "line %d: %s\n", e.Line, e.Message)
	}
	return nil
}

// runTicketPDF handles the ticket pdf command
func runTicketPDF(cmd *cobra.Command, args []string) error {
	url := serverURL + "/api/v1/tickets/pdf"
	httpReq, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	out, err := os.Create(ticketPDFOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", ticketPDFOut, err)
	}
	defer out.Close()
	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", ticketPDFOut, err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", ticketPDFOut, n)
	return nil
}

// runBig3 handles the big3 command
func runBig3(cmd *cobra.Command, args []string) error {
	req := Big3Request{
		Sex:        big3Sex,
		Bodyweight: big3Bodyweight,
		Squat:      big3Squat,
		Bench:      big3Bench,
		Deadlift:   big3Deadlift,
	}
	var result Big3Response
	if err := apiRequest("POST", "/api/v1/big3/level", req, &result); err != nil {
		return err
	}

	printLift := func(name string, lr LiftResult) {
		next := ""
		if lr.NextLevelAt > 0 {
			next = fmt.Sprintf("  (next level at %.1f kg)", lr.NextLevelAt)
		}
		fmt.Printf("%-9s %6.1f kg  x%.2f BW  %s%s\n", name, lr.Weight, lr.Ratio, lr.Level, next)
	}
	printLift("Squat", result.Squat)
	printLift("Bench", result.Bench)
	printLift("Deadlift", result.Deadlift)
	fmt.Printf("Total: %.1f kg, overall level: %s\n", result.Total, result.Overall)
	return nil
}

// runSyndicate handles the syndicate run command
func runSyndicate(cmd *cobra.Command, args []string) error {
	var report SyndicateReport
	if err := apiRequest("POST", "/api/v1/syndicate/run", nil, &report); err != nil {
		return err
	}
	fmt.Printf("Synced %d, skipped %d, failed %d in %s\n",
		report.Synced, report.Skipped, report.Failed, report.Duration)
	for _, slug := range report.Published {
		fmt.Printf("  published %s\n", slug)
	}
	return nil
}

// runStats handles the stats command
func runStats(cmd *cobra.Command, args []string) error {
	model := monitor.NewModel(serverURL, authToken, statsInterval)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
