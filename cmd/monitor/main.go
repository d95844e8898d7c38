package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/dimasergei/agentiq/internal/domain"
)

type client struct {
	baseURL string
	http    *http.Client
}

type embeddedServer struct {
	cmd *exec.Cmd
}

func main() {
	addr := flag.String("addr", "http://localhost:8090", "agentiq server base URL")
	interval := flag.Duration("interval", 2*time.Second, "refresh interval")
	embedded := flag.Bool("embedded", true, "start the agentiq server in the same monitor process lifecycle")
	serverBinary := flag.String("server-bin", "", "path to agentiq binary (optional in embedded mode)")
	dbPath := flag.String("db", "data/embedded.db", "sqlite db path for embedded server")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	var embeddedProc *embeddedServer
	var err error
	if *embedded {
		embeddedProc, err = startEmbeddedServer(*addr, *serverBinary, *dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start embedded server: %v\n", err)
			os.Exit(1)
		}
		defer embeddedProc.Stop()
	}

	if err := waitHealth(c, 30*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "server health check failed: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()
	tasksTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	tasksTable.SetTitle("Tasks (Enter inspect, F5 refresh, F10 quit)").SetBorder(true)

	subtasksView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	subtasksView.SetTitle("Subtasks").SetBorder(true)

	insightsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	insightsView.SetTitle("Insights").SetBorder(true)

	planView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	planView.SetTitle("Execution Plan").SetBorder(true)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statsView.SetTitle("Stats").SetBorder(true)

	promptInput := tview.NewInputField().
		SetLabel("Task -> Planner: ")
	promptInput.SetBorder(true).SetTitle("Enter = request execution plan")

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf(
		"Connected to %s | embedded=%t | shortcuts: F10 quit, F5 refresh, Ctrl+L focus prompt, Ctrl+T focus tasks, Ctrl+R reset simulation",
		c.baseURL,
		*embedded,
	))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(subtasksView, 0, 2, false).
		AddItem(insightsView, 0, 1, false).
		AddItem(planView, 0, 2, false)

	mainLayout := tview.NewFlex().
		AddItem(tasksTable, 0, 1, false).
		AddItem(right, 0, 2, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(statsView, 3, 0, false).
		AddItem(promptInput, 3, 0, true).
		AddItem(statusView, 3, 0, false)

	var selectedTaskID string
	var lastTasks []domain.DemoTask
	var planVersion uint64

	setStatusUI := func(msg string) {
		statusView.SetText(msg)
	}
	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	renderSelected := func() {
		var selected *domain.DemoTask
		for i := range lastTasks {
			if lastTasks[i].ID == selectedTaskID {
				selected = &lastTasks[i]
				break
			}
		}
		if selected == nil {
			subtasksView.SetText("No task selected")
			insightsView.SetText("")
			return
		}
		subtasksView.SetText(renderSubtasks(selected))
		insightsView.SetText(renderInsights(selected))
	}

	refresh := func() {
		tasks, err := c.listSimulationTasks()
		if err != nil {
			app.QueueUpdateDraw(func() {
				tasksTable.Clear()
				tasksTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("load error: %v", err)).SetTextColor(tview.Styles.ContrastSecondaryTextColor))
			})
			return
		}
		stats, statsErr := c.simulationStats()
		lastTasks = tasks
		if selectedTaskID == "" {
			for _, t := range tasks {
				if t.Status == domain.TaskStatusInProgress || t.Status == domain.TaskStatusReview {
					selectedTaskID = t.ID
					break
				}
			}
		}
		app.QueueUpdateDraw(func() {
			renderTasksTable(tasksTable, tasks, selectedTaskID)
			renderSelected()
			if statsErr != nil {
				statsView.SetText(fmt.Sprintf("stats error: %v", statsErr))
			} else {
				statsView.SetText(stats)
			}
		})
	}

	requestPlan := func(task string) {
		task = strings.TrimSpace(task)
		if task == "" {
			return
		}
		setStatusUI("Requesting execution plan...")
		promptInput.SetText("")
		version := atomic.AddUint64(&planVersion, 1)
		go func(input string, v uint64) {
			plan, err := c.requestPlan(input)
			if atomic.LoadUint64(&planVersion) != v {
				return
			}
			if err != nil {
				setStatusAsync("Plan request failed: " + err.Error())
				return
			}
			app.QueueUpdateDraw(func() {
				planView.SetText(renderPlan(input, plan))
				statusView.SetText(fmt.Sprintf("Plan ready: %d steps, success probability %.0f%%", len(plan.Steps), plan.SuccessProbability*100))
			})
		}(task, version)
	}

	promptInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		requestPlan(promptInput.GetText())
	})

	tasksTable.SetSelectedFunc(func(row, _ int) {
		if row <= 0 || row > len(lastTasks) {
			return
		}
		selectedTaskID = lastTasks[row-1].ID
		renderSelected()
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if app.GetFocus() == promptInput {
			if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyTAB {
				app.SetFocus(tasksTable)
				setStatusUI("Focus -> tasks")
				return nil
			}
			return event
		}

		if event.Key() == tcell.KeyEscape {
			app.SetFocus(tasksTable)
			setStatusUI("Focus -> tasks")
			return nil
		}
		switch event.Key() {
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			go refresh()
			setStatusUI("Manual refresh requested")
			return nil
		case tcell.KeyCtrlL:
			app.SetFocus(promptInput)
			setStatusUI("Focus -> prompt")
			return nil
		case tcell.KeyCtrlT:
			app.SetFocus(tasksTable)
			setStatusUI("Focus -> tasks")
			return nil
		case tcell.KeyCtrlR:
			go func() {
				if err := c.resetSimulation(); err != nil {
					setStatusAsync("Reset failed: " + err.Error())
					return
				}
				refresh()
				setStatusAsync("Simulation reset to seed state")
			}()
			return nil
		}
		if event.Key() == tcell.KeyTAB {
			app.SetFocus(promptInput)
			return nil
		}
		if event.Key() == tcell.KeyRune {
			app.SetFocus(promptInput)
			return event
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		refresh()
		for range ticker.C {
			refresh()
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(promptInput).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		os.Exit(1)
	}
}

func waitHealth(c *client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/healthz", nil)
		if err == nil {
			resp, err := c.http.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode < 300 {
					return nil
				}
			}
		}
		time.Sleep(400 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for /healthz")
}

func startEmbeddedServer(addr, serverBinary, dbPath string) (*embeddedServer, error) {
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	port := parsed.Port()
	if port == "" {
		return nil, fmt.Errorf("addr must include explicit port, got %q", addr)
	}
	addrArg := ":" + port

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	var cmd *exec.Cmd
	if strings.TrimSpace(serverBinary) != "" {
		cmd = exec.Command(serverBinary, "--addr", addrArg, "--db", dbPath)
	} else {
		self, err := os.Executable()
		if err == nil {
			sibling := filepath.Join(filepath.Dir(self), "agentiq")
			if fileExists(sibling) {
				cmd = exec.Command(sibling, "--addr", addrArg, "--db", dbPath)
			}
		}
		if cmd == nil {
			cmd = exec.Command("go", "run", "./cmd/agentiq", "--addr", addrArg, "--db", dbPath)
			cwd, _ := os.Getwd()
			cmd.Dir = cwd
		}
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server process: %w", err)
	}
	return &embeddedServer{cmd: cmd}, nil
}

func (e *embeddedServer) Stop() {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	_ = e.cmd.Process.Kill()
	_, _ = e.cmd.Process.Wait()
}

func renderTasksTable(table *tview.Table, tasks []domain.DemoTask, selectedTaskID string) {
	table.Clear()
	headers := []string{"Task", "Status", "Progress", "Complexity", "Agents"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, t := range tasks {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(trimLine(t.Title, 32)))
		table.SetCell(row, 1, tview.NewTableCell(string(t.Status)))
		table.SetCell(row, 2, tview.NewTableCell(progressBar(t.Progress)))
		table.SetCell(row, 3, tview.NewTableCell(string(t.Complexity)))
		table.SetCell(row, 4, tview.NewTableCell(strings.Join(t.AssignedAgents, ",")))
		if t.ID == selectedTaskID {
			table.Select(row, 0)
		}
	}
}

func progressBar(percent int) string {
	filled := percent / 10
	if filled > 10 {
		filled = 10
	}
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", 10-filled), percent)
}

func renderSubtasks(task *domain.DemoTask) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  status=%s progress=%d%%\n", task.Title, task.Status, task.Progress))
	if task.StartTime != nil {
		b.WriteString("started: " + task.StartTime.Format("15:04:05") + "\n")
	}
	if task.CompletionTime != nil {
		b.WriteString("completed: " + task.CompletionTime.Format("15:04:05") + "\n")
	}
	b.WriteString("\n")
	for _, st := range task.Subtasks {
		b.WriteString(fmt.Sprintf("%-10s %-24s agent=%s\n", st.Status, trimLine(st.Title, 24), st.AssignedAgent))
		if st.Result != nil {
			b.WriteString(fmt.Sprintf("  [%s] %s\n", st.Result.Kind, trimLine(st.Result.Text, 90)))
		}
	}
	return b.String()
}

func renderInsights(task *domain.DemoTask) string {
	if len(task.Insights) == 0 {
		return "No insights yet"
	}
	var b strings.Builder
	for _, insight := range task.Insights {
		b.WriteString("- " + insight + "\n")
	}
	return b.String()
}

func renderPlan(task string, plan domain.ExecutionPlan) string {
	var b strings.Builder
	b.WriteString("Task: " + task + "\n")
	b.WriteString(plan.Summary + "\n\n")
	for _, step := range plan.Steps {
		b.WriteString(fmt.Sprintf("%d. %s (%s, confidence %.0f%%)\n", step.Step, step.Action, step.EstimatedTime, step.Confidence*100))
		b.WriteString("   " + step.Description + "\n")
	}
	b.WriteString(fmt.Sprintf("\nTotal: %s  success probability %.0f%%\n", plan.TotalEstimatedTime, plan.SuccessProbability*100))
	return b.String()
}

func (c *client) listSimulationTasks() ([]domain.DemoTask, error) {
	var out []domain.DemoTask
	if err := c.getJSON("/simulation/tasks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) simulationStats() (string, error) {
	var out struct {
		Running        bool `json:"running"`
		TotalTasks     int  `json:"total_tasks"`
		ActiveTasks    int  `json:"active_tasks"`
		CompletedTasks int  `json:"completed_tasks"`
		Idle           bool `json:"idle"`
	}
	if err := c.getJSON("/simulation/stats", &out); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"simulation running=%t  tasks=%d  active=%d  completed=%d  idle=%t",
		out.Running, out.TotalTasks, out.ActiveTasks, out.CompletedTasks, out.Idle,
	), nil
}

func (c *client) requestPlan(task string) (domain.ExecutionPlan, error) {
	var plan domain.ExecutionPlan
	req := map[string]any{"task": task}
	if err := c.postJSON("/api/agents/execute", req, &plan); err != nil {
		return domain.ExecutionPlan{}, err
	}
	return plan, nil
}

func (c *client) resetSimulation() error {
	return c.postJSON("/simulation/reset", map[string]any{}, nil)
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

func (c *client) postJSON(path string, in any, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func trimLine(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
