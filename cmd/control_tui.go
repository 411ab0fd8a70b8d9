// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/r8cctl/pkg/r8c"
	"github.com/Thermoquad/r8cctl/pkg/r8c/keys"
	"github.com/Thermoquad/r8cctl/pkg/r8c/leds"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	refreshIntervalSeconds = 5 // Re-read LED state every N seconds
	brightnessStep         = 10
	maxLogEntries          = 100
	commandTimeout         = 5 * time.Second
)

// Focus states
const (
	focusLEDList = iota
	focusCommandInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// logEntry is one line of the event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// hddItem is one HDD LED in the list
type hddItem struct {
	port  int
	color leds.Color
	mode  leds.HDDMode
	known bool
}

// Implement list.Item interface
func (h hddItem) Title() string { return fmt.Sprintf("HDD %d (%s)", h.port, h.color) }
func (h hddItem) Description() string {
	if !h.known {
		return "?"
	}
	return h.mode.String()
}
func (h hddItem) FilterValue() string { return fmt.Sprintf("%d", h.port) }

// linkRates tracks per-second rates between ticks
type linkRates struct {
	last        r8c.Stats
	lastAt      time.Time
	commandRate float64
	eventRate   float64
}

func (r *linkRates) update(st r8c.Stats, now time.Time) {
	if !r.lastAt.IsZero() {
		dt := now.Sub(r.lastAt).Seconds()
		if dt > 0 && st.Commands >= r.last.Commands && st.Events >= r.last.Events {
			r.commandRate = float64(st.Commands-r.last.Commands) / dt
			r.eventRate = float64(st.Events-r.last.Events) / dt
		}
	}
	r.last = st
	r.lastAt = now
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	sm *sessionManager

	// Connection
	connInfo       string
	model          string
	version        string
	connectedAt    time.Time
	connected      bool
	connectionLost bool

	// Controllers for the current session, nil while disconnected
	leds  *leds.Controller
	power powerController

	// Board state as last read
	items      []hddItem
	ledList    list.Model
	status     string
	brightness int
	wakeFlag   string
	reason     string

	// Link statistics
	stats r8c.Stats
	rates linkRates

	// Keys
	pressed map[string]bool

	// Event log
	eventLog []logEntry

	// Raw command
	cmdInput     textinput.Model
	focusedField int

	// UI state
	width       int
	height      int
	quitting    bool
	lastRefresh time.Time
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type connectedMsg struct {
	connInfo string
	model    string
	version  string
	leds     *leds.Controller
	ledsErr  error
	power    powerController
	keysErr  error
}

type connectionLostMsg struct {
	err error
}

type reconnectFailedMsg struct {
	err   error
	retry time.Duration
}

type mcuEventMsg struct {
	code byte
	at   time.Time
}

type keyEventMsg struct {
	ev keys.Event
	at time.Time
}

type logLineMsg string

// refreshMsg carries a fresh read of the board state
type refreshMsg struct {
	status     leds.StatusMode
	statusErr  error
	brightness int
	bErr       error
	modes      []leds.HDDMode
	modesErr   error
	wakeFlag   bool
	wakeErr    error
}

type reasonMsg struct {
	reason string
	err    error
}

// actionMsg reports the outcome of a command issued from the TUI
type actionMsg struct {
	desc    string
	err     error
	refresh bool
}

type rawReplyMsg struct {
	line  string
	reply string
	err   error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(sm *sessionManager) controlModel {
	ti := textinput.New()
	ti.Placeholder = "sts"
	ti.Prompt = ":"
	ti.CharLimit = r8c.MaxRawCommandLen
	ti.Width = 30

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	ledList := list.New([]list.Item{}, delegate, 30, 10)
	ledList.Title = "HDD LEDs"
	ledList.SetShowStatusBar(false)
	ledList.SetShowHelp(false)
	ledList.SetFilteringEnabled(false)

	return controlModel{
		sm:           sm,
		ledList:      ledList,
		pressed:      make(map[string]bool),
		eventLog:     make([]logEntry, 0),
		cmdInput:     ti,
		focusedField: focusLEDList,
		width:        80,
		height:       24,
		brightness:   -1,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.ledList, _ = m.ledList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		if s := m.sm.current(); s != nil && m.connected {
			m.stats = s.Stats()
			m.rates.update(m.stats, time.Time(msg))
		}
		if m.connected && time.Since(m.lastRefresh) >= refreshIntervalSeconds*time.Second {
			m.lastRefresh = time.Now()
			cmds = append(cmds, m.refreshCmd())
		}
		cmds = append(cmds, controlTickCmd())
		return m, tea.Batch(cmds...)

	case connectedMsg:
		m.handleConnected(msg)
		m.lastRefresh = time.Now()
		return m, tea.Batch(m.refreshCmd(), m.reasonCmd())

	case connectionLostMsg:
		m.connected = false
		m.connectionLost = true
		m.leds = nil
		m.power = nil
		m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)

	case reconnectFailedMsg:
		m.addLogEntry(fmt.Sprintf("Reconnect failed: %v (retry in %v)", msg.err, msg.retry), true)

	case mcuEventMsg:
		m.addLogEntryAt(msg.at, fmt.Sprintf("Event @%c", msg.code), false)

	case keyEventMsg:
		m.pressed[msg.ev.Label] = msg.ev.Pressed
		state := "released"
		if msg.ev.Pressed {
			state = "pressed"
		}
		m.addLogEntryAt(msg.at, fmt.Sprintf("Key %s (%s) %s", msg.ev.Label, msg.ev.Code, state), false)

	case logLineMsg:
		m.addLogEntry(string(msg), strings.Contains(string(msg), "ERR"))

	case refreshMsg:
		m.applyRefresh(msg)

	case reasonMsg:
		if msg.err != nil {
			m.reason = "?"
			m.addLogEntry(fmt.Sprintf("Power-on reason: %v", msg.err), true)
		} else {
			m.reason = msg.reason
		}

	case actionMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.desc, msg.err), true)
		} else {
			m.addLogEntry(msg.desc, false)
		}
		if msg.refresh && m.connected {
			m.lastRefresh = time.Now()
			return m, m.refreshCmd()
		}

	case rawReplyMsg:
		switch {
		case msg.err != nil:
			m.addLogEntry(fmt.Sprintf(":%s -> %v", msg.line, msg.err), true)
		case msg.reply == "":
			m.addLogEntry(fmt.Sprintf(":%s -> (no reply)", msg.line), false)
		default:
			m.addLogEntry(fmt.Sprintf(":%s -> ;%s", msg.line, msg.reply), false)
		}
	}

	// Update child components
	var cmd tea.Cmd
	if m.focusedField == focusCommandInput {
		m.cmdInput, cmd = m.cmdInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focusedField == focusLEDList {
		m.ledList, cmd = m.ledList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.focusedField == focusLEDList {
			m.focusedField = focusCommandInput
			return m, m.cmdInput.Focus()
		}
		m.focusedField = focusLEDList
		m.cmdInput.Blur()
		return m, nil
	}

	if m.focusedField == focusCommandInput {
		if msg.String() == "enter" {
			line := strings.TrimSpace(m.cmdInput.Value())
			if line == "" {
				return m, nil
			}
			m.cmdInput.SetValue("")
			return m, m.rawCommandCmd(line)
		}
		var cmd tea.Cmd
		m.cmdInput, cmd = m.cmdInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "r":
		m.lastRefresh = time.Now()
		return m, m.refreshCmd()
	case "o":
		return m, m.hddCmd("on", func(ctx context.Context, l *leds.HDDLED) error { return l.SetOn(ctx, true) })
	case "x":
		return m, m.hddCmd("off", func(ctx context.Context, l *leds.HDDLED) error { return l.Off(ctx) })
	case "b":
		return m, m.hddCmd("blink", func(ctx context.Context, l *leds.HDDLED) error { return l.Blink(ctx, true) })
	case "s":
		return m, m.hddCmd("steady", func(ctx context.Context, l *leds.HDDLED) error { return l.Blink(ctx, false) })
	case "1":
		return m, m.hddCmd("blue", func(ctx context.Context, l *leds.HDDLED) error { return l.SetColor(ctx, true, false) })
	case "2":
		return m, m.hddCmd("red", func(ctx context.Context, l *leds.HDDLED) error { return l.SetColor(ctx, false, true) })
	case "3":
		return m, m.hddCmd("purple", func(ctx context.Context, l *leds.HDDLED) error { return l.SetColor(ctx, true, true) })
	case "+", "=":
		return m, m.brightnessCmd(brightnessStep)
	case "-":
		return m, m.brightnessCmd(-brightnessStep)
	case "m":
		return m, m.statusCmd()
	case "w":
		return m, m.wakeCmd()
	}

	var cmd tea.Cmd
	m.ledList, cmd = m.ledList.Update(msg)
	return m, cmd
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("R8CCTL CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	switch {
	case m.connectionLost:
		connStatus = warningStyle.Render("RECONNECTING...")
	case !m.connected:
		connStatus = warningStyle.Render("CONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch r=refresh", connStatus)))
	s.WriteString("\n")

	if m.connected {
		s.WriteString(fmt.Sprintf(" %s %s  %s %s  %s %s",
			labelStyle.Render("MCU:"), valueStyle.Render(m.model),
			labelStyle.Render("Firmware:"), valueStyle.Render(m.version),
			labelStyle.Render("Connected:"), valueStyle.Render(formatUptime(time.Since(m.connectedAt)))))
	}
	s.WriteString("\n\n")

	// Layout: left panel (HDD LEDs) | right panel (board)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 20 {
		rightWidth = 20
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusLEDList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	ledPanel := listStyle.Render(m.ledList.View())

	boardPanel := boxStyle.Width(rightWidth).Render(m.renderBoardPanel(labelStyle, valueStyle, headerStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, ledPanel, " ", boardPanel))
	s.WriteString("\n")

	// Command input
	inputStyle := boxStyle.Width(m.width - 4)
	if m.focusedField == focusCommandInput {
		inputStyle = focusedBoxStyle.Width(m.width - 4)
	}
	s.WriteString(inputStyle.Render(labelStyle.Render("COMMAND ") + m.cmdInput.View()))
	s.WriteString("\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	// Event log
	s.WriteString(m.renderEventLog(labelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderBoardPanel(labelStyle, valueStyle, headerStyle lipgloss.Style) string {
	var s strings.Builder

	if !m.connected {
		s.WriteString(headerStyle.Render("Waiting for the MCU..."))
		return s.String()
	}

	brightness := "?"
	if m.brightness >= 0 {
		brightness = fmt.Sprintf("%d%%", m.brightness)
	}

	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Status LED:"), valueStyle.Render(m.status)))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Brightness:"), valueStyle.Render(brightness)))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("WoL flag:  "), valueStyle.Render(m.wakeFlag)))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Power-on:  "), valueStyle.Render(m.reason)))

	if len(board.Keys.Buttons) > 0 {
		s.WriteString(labelStyle.Render("Keys:      "))
		for _, b := range board.Keys.Buttons {
			if m.pressed[b.Label] {
				s.WriteString(" " + valueStyle.Render("["+b.Label+"]"))
			} else {
				s.WriteString(" " + b.Label)
			}
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(headerStyle.Render("o/x=on/off b/s=blink/steady 1/2/3=blue/red/purple"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("+/-=brightness m=status mode w=toggle WoL"))

	return s.String()
}

func (m controlModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	timeouts := valueStyle.Render("0")
	if m.stats.Timeouts > 0 {
		timeouts = errorStyle.Render(fmt.Sprintf("%d", m.stats.Timeouts))
	}
	discarded := valueStyle.Render("0")
	if m.stats.BytesDiscarded > 0 {
		discarded = errorStyle.Render(fmt.Sprintf("%d", m.stats.BytesDiscarded))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Commands:"), valueStyle.Render(fmt.Sprintf("%d (%.1f/s)", m.stats.Commands, m.rates.commandRate)),
		labelStyle.Render("Timeouts:"), timeouts,
		labelStyle.Render("Events:"), valueStyle.Render(fmt.Sprintf("%d (%.1f/s)", m.stats.Events, m.rates.eventRate)),
		labelStyle.Render("Rx:"), valueStyle.Render(fmt.Sprintf("%d B", m.stats.BytesReceived)),
		labelStyle.Render("Discarded:"), discarded,
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(labelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// Use what is left of the screen, but at least a few lines
	logHeight := m.height - 28
	if logHeight < 4 {
		logHeight = 4
	}
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *controlModel) handleConnected(msg connectedMsg) {
	m.connected = true
	m.connectionLost = false
	m.connInfo = msg.connInfo
	m.model = msg.model
	m.version = msg.version
	m.connectedAt = time.Now()
	m.leds = msg.leds
	m.power = msg.power
	m.rates = linkRates{}
	m.pressed = make(map[string]bool)

	m.addLogEntry(fmt.Sprintf("Connected: %s %s", msg.model, msg.version), false)
	if msg.ledsErr != nil {
		m.addLogEntry(fmt.Sprintf("LED setup: %v", msg.ledsErr), true)
	}
	if msg.keysErr != nil {
		m.addLogEntry(fmt.Sprintf("Key setup: %v", msg.keysErr), true)
	}

	m.items = m.items[:0]
	if m.leds != nil {
		for _, l := range m.leds.HDDs() {
			m.items = append(m.items, hddItem{port: l.Port(), color: l.Color()})
		}
	}
	m.updateLEDList()
}

func (m *controlModel) applyRefresh(msg refreshMsg) {
	if msg.statusErr != nil {
		m.status = "?"
	} else {
		m.status = leds.FormatStatus(msg.status)
	}

	if msg.bErr != nil {
		m.brightness = -1
	} else {
		m.brightness = msg.brightness
	}

	switch {
	case msg.wakeErr != nil:
		m.wakeFlag = "?"
	case msg.wakeFlag:
		m.wakeFlag = "on"
	default:
		m.wakeFlag = "off"
	}

	if msg.modesErr != nil {
		m.addLogEntry(fmt.Sprintf("HDD LED read: %v", msg.modesErr), true)
		return
	}
	for i := range m.items {
		p := m.items[i].port
		if p < len(msg.modes) {
			if m.items[i].known && m.items[i].mode != msg.modes[p] {
				m.addLogEntry(fmt.Sprintf("HDD %d: %s -> %s", p, m.items[i].mode, msg.modes[p]), false)
			}
			m.items[i].mode = msg.modes[p]
			m.items[i].known = true
		}
	}
	m.updateLEDList()
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// refreshCmd reads the board state in the background
func (m controlModel) refreshCmd() tea.Cmd {
	s, lc, pc := m.sm.current(), m.leds, m.power
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var msg refreshMsg
		msg.status, msg.statusErr = leds.Status(ctx, s)
		if lc != nil {
			msg.brightness, msg.bErr = lc.Brightness().Get(ctx)
		} else {
			msg.bErr = leds.ErrNoState
		}
		msg.modes, msg.modesErr = leds.HDDModes(ctx, s)
		if pc != nil {
			msg.wakeFlag, msg.wakeErr = pc.WakeFlag(ctx)
		}
		return msg
	}
}

func (m controlModel) reasonCmd() tea.Cmd {
	pc := m.power
	if pc == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		r, err := pc.PowerOnReason(ctx)
		if err != nil {
			return reasonMsg{err: err}
		}
		return reasonMsg{reason: r.String()}
	}
}

// hddCmd applies fn to the selected HDD LED
func (m *controlModel) hddCmd(what string, fn func(ctx context.Context, l *leds.HDDLED) error) tea.Cmd {
	if !m.connected || m.leds == nil {
		m.addLogEntry("Cannot send command: not connected", true)
		return nil
	}
	item := m.selectedItem()
	if item == nil {
		return nil
	}
	l := m.leds.HDD(item.port)
	if l == nil {
		return nil
	}
	desc := fmt.Sprintf("HDD %d %s", item.port, what)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return actionMsg{desc: desc, err: fn(ctx, l), refresh: true}
	}
}

func (m *controlModel) brightnessCmd(delta int) tea.Cmd {
	if !m.connected || m.leds == nil || m.brightness < 0 {
		return nil
	}
	target := m.brightness + delta
	if target < leds.MinBrightness {
		target = leds.MinBrightness
	}
	if target > leds.MaxBrightness {
		target = leds.MaxBrightness
	}
	b := m.leds.Brightness()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return actionMsg{desc: fmt.Sprintf("Brightness %d%%", target), err: b.Set(ctx, target), refresh: true}
	}
}

// statusCmd moves the status LED to the next settable mode
func (m *controlModel) statusCmd() tea.Cmd {
	if !m.connected || m.leds == nil {
		return nil
	}
	var settable []string
	for _, mode := range leds.StatusModes {
		if mode.Settable {
			settable = append(settable, mode.Name)
		}
	}
	next := settable[0]
	for i, name := range settable {
		if strings.Contains(m.status, "["+name+"]") {
			next = settable[(i+1)%len(settable)]
			break
		}
	}
	lc := m.leds
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return actionMsg{desc: "Status LED " + next, err: lc.SetStatus(ctx, next), refresh: true}
	}
}

func (m *controlModel) wakeCmd() tea.Cmd {
	if !m.connected || m.power == nil || (m.wakeFlag != "on" && m.wakeFlag != "off") {
		return nil
	}
	on := m.wakeFlag == "off"
	pc := m.power
	desc := "WoL flag off"
	if on {
		desc = "WoL flag on"
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return actionMsg{desc: desc, err: pc.SetWakeFlag(ctx, on), refresh: true}
	}
}

func (m *controlModel) rawCommandCmd(line string) tea.Cmd {
	s := m.sm.current()
	if !m.connected || s == nil {
		m.addLogEntry("Cannot send command: not connected", true)
		return nil
	}
	line = strings.TrimPrefix(line, ":")
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		reply, err := s.RawCommand(ctx, line)
		return rawReplyMsg{line: line, reply: reply, err: err}
	}
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.addLogEntryAt(time.Now(), message, isError)
}

func (m *controlModel) addLogEntryAt(at time.Time, message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{timestamp: at, message: message, isError: isError})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

func (m *controlModel) selectedItem() *hddItem {
	idx := m.ledList.Index()
	if idx < 0 || idx >= len(m.items) {
		return nil
	}
	return &m.items[idx]
}

func (m *controlModel) updateLEDList() {
	items := make([]list.Item, len(m.items))
	for i, it := range m.items {
		items[i] = it
	}
	m.ledList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.ledList.SetSize(28, listHeight)
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 && days == 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	return strings.Join(parts, ", ")
}
