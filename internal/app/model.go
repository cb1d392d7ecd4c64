// Package app is the terminal front end. A single bubbletea update loop owns
// all mutable state; recorder, pipeline, store and bus work runs in commands
// and reports back as messages.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memovox/memovox/internal/auth"
	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/eventlog"
	"github.com/memovox/memovox/internal/notestore"
	"github.com/memovox/memovox/internal/pipeline"
	"github.com/memovox/memovox/internal/protocol"
	"github.com/memovox/memovox/internal/session"
)

// Mode is the top-level screen. It follows the identity phase: Loading until
// the first resolution, Login while signed out, Home while signed in.
type Mode int

const (
	ModeLoading Mode = iota
	ModeLogin
	ModeHome
)

// NoteStore is the slice of the note store the view reads and prunes.
type NoteStore interface {
	List(ctx context.Context) ([]notestore.Note, error)
	Delete(ctx context.Context, id string) error
}

// Runner executes the commit pipeline for a finished clip.
type Runner interface {
	Run(ctx context.Context, clip capture.Clip) (pipeline.Result, error)
}

// Identity is the slice of the auth watcher the view drives.
type Identity interface {
	Bootstrap(ctx context.Context)
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context)
	User() (auth.User, bool)
}

type loginForm struct {
	email      string
	password   string
	focusIndex int
	submitting bool
	errText    string
}

// Model is the root bubbletea model.
type Model struct {
	session   *session.Session
	player    capture.Player
	clipboard capture.Clipboard
	runner    Runner
	store     NoteStore
	identity  Identity
	journal   *eventlog.Log
	logger    *slog.Logger
	events    <-chan tea.Msg

	mode      Mode
	userEmail string

	login loginForm
	notes noteList

	playbackDone <-chan error

	width  int
	height int

	statusText   string
	errorMessage string
	noticeText   string
}

// New assembles the model. events carries bus traffic already decoded into
// app messages; journal may be nil when the lifecycle journal is disabled.
func New(sess *session.Session, player capture.Player, clipboard capture.Clipboard,
	runner Runner, store NoteStore, identity Identity, journal *eventlog.Log,
	events <-chan tea.Msg, logger *slog.Logger) Model {
	return Model{
		session:    sess,
		player:     player,
		clipboard:  clipboard,
		runner:     runner,
		store:      store,
		identity:   identity,
		journal:    journal,
		events:     events,
		logger:     logger.With(slog.String("component", "app")),
		mode:       ModeLoading,
		notes:      newNoteList(),
		statusText: "Resolving session...",
	}
}

// Init resolves the persisted identity and starts draining bus events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(bootstrapCmd(m.identity), waitEventCmd(m.events))
}

func bootstrapCmd(identity Identity) tea.Cmd {
	return func() tea.Msg {
		identity.Bootstrap(context.Background())
		return nil
	}
}

func waitEventCmd(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return BusClosedMsg{}
		}
		return msg
	}
}

func signInCmd(identity Identity, email, password string) tea.Cmd {
	return func() tea.Msg {
		return SignInResultMsg{Err: identity.SignIn(context.Background(), email, password)}
	}
}

func loadNotesCmd(store NoteStore) tea.Cmd {
	return func() tea.Msg {
		notes, err := store.List(context.Background())
		return NotesLoadedMsg{Notes: notes, Err: err}
	}
}

func runPipelineCmd(runner Runner, clip capture.Clip) tea.Cmd {
	return func() tea.Msg {
		result, err := runner.Run(context.Background(), clip)
		return PipelineDoneMsg{Result: result, Err: err}
	}
}

func deleteNoteCmd(store NoteStore, id string) tea.Cmd {
	return func() tea.Msg {
		return NoteDeletedMsg{ID: id, Err: store.Delete(context.Background(), id)}
	}
}

func copyNoteCmd(clipboard capture.Clipboard, id, text string) tea.Cmd {
	return func() tea.Msg {
		return NoteCopiedMsg{ID: id, Err: clipboard.Copy(context.Background(), text)}
	}
}

func clearCopiedCmd() tea.Cmd {
	return tea.Tick(1500*time.Millisecond, func(time.Time) tea.Msg {
		return ClearCopiedMsg{}
	})
}

func clearNoticeCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

func recordTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return RecordTickMsg{}
	})
}

func waitPlaybackCmd(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return PlaybackDoneMsg{Err: <-done}
	}
}

// journalCmd writes one journal line off the update loop. Journal failures
// never surface in the UI.
func (m Model) journalCmd(kind, detail string) tea.Cmd {
	if m.journal == nil {
		return nil
	}
	journal, sessionID := m.journal, m.session.ID()
	userID := ""
	if user, ok := m.identity.User(); ok {
		userID = user.ID
	}
	return func() tea.Msg {
		ctx := context.Background()
		if err := journal.BeginSession(ctx, sessionID, userID); err != nil {
			return nil
		}
		_ = journal.Append(ctx, sessionID, kind, detail)
		return nil
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case AuthStateMsg:
		return m.handleAuthState(msg.State)

	case MemoCreatedMsg:
		// Another memo landed; refresh so the list stays ordered and
		// complete even when this instance did not create it.
		var cmd tea.Cmd
		if m.mode == ModeHome {
			cmd = loadNotesCmd(m.store)
		}
		return m, tea.Batch(cmd, waitEventCmd(m.events))

	case BusClosedMsg:
		// Auth and memo events stop flowing when the bus goes away; the view
		// would silently drift from reality, so treat it as fatal.
		m.logger.Error("event stream closed, shutting down")
		m.errorMessage = "event stream closed"
		return m, tea.Quit

	case SignInResultMsg:
		m.login.submitting = false
		if msg.Err != nil {
			m.login.errText = msg.Err.Error()
			m.login.password = ""
			return m, nil
		}
		return m.enterHome()

	case NotesLoadedMsg:
		if msg.Err != nil {
			m.notes.loading = false
			m.errorMessage = "loading notes failed: " + msg.Err.Error()
			return m, nil
		}
		m.errorMessage = ""
		m.notes.Replace(msg.Notes)
		return m, nil

	case RecordTickMsg:
		if m.session.State() != session.StateRecording {
			return m, nil
		}
		m.session.Tick()
		return m, recordTickCmd()

	case PipelineDoneMsg:
		return m.handlePipelineDone(msg)

	case PlaybackDoneMsg:
		if m.playbackDone == nil {
			// Playback was already torn down (discard, commit or sign-out);
			// the trailing completion from the cancelled player is noise.
			return m, nil
		}
		m.playbackDone = nil
		m.session.FinishPlayback()
		if msg.Err != nil {
			m.errorMessage = "playback failed: " + msg.Err.Error()
		}
		return m, nil

	case NoteDeletedMsg:
		if msg.Err != nil {
			m.notes.ClearDeleting(msg.ID)
			m.errorMessage = "deleting note failed: " + msg.Err.Error()
			return m, nil
		}
		m.notes.RemoveByID(msg.ID)
		return m, nil

	case NoteCopiedMsg:
		if msg.Err != nil {
			m.errorMessage = "copy failed: " + msg.Err.Error()
			return m, nil
		}
		m.notes.SetCopied(msg.ID)
		return m, clearCopiedCmd()

	case ClearCopiedMsg:
		m.notes.ClearCopied()
		return m, nil

	case ClearNoticeMsg:
		m.noticeText = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleAuthState(state protocol.AuthState) (tea.Model, tea.Cmd) {
	rearm := waitEventCmd(m.events)
	switch state.Phase {
	case protocol.AuthPresent:
		model, cmd := m.enterHome()
		return model, tea.Batch(cmd, rearm)
	case protocol.AuthAbsent:
		m.stopPlayback()
		m.mode = ModeLogin
		m.userEmail = ""
		m.login = loginForm{}
		m.notes = newNoteList()
		m.statusText = "Signed out"
		return m, rearm
	default:
		m.mode = ModeLoading
		return m, rearm
	}
}

func (m Model) enterHome() (Model, tea.Cmd) {
	if user, ok := m.identity.User(); ok {
		m.userEmail = user.Email
	}
	if m.mode == ModeHome {
		return m, nil
	}
	m.mode = ModeHome
	m.statusText = "Idle"
	m.errorMessage = ""
	m.notes = newNoteList()
	return m, loadNotesCmd(m.store)
}

func (m Model) handlePipelineDone(msg PipelineDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// The clip survives a failed commit; the user retries or discards.
		m.session.FailCommit()
		m.errorMessage = "saving memo failed: " + msg.Err.Error()
		m.statusText = "Review"
		return m, m.journalCmd(eventlog.KindCommitFailed, msg.Err.Error())
	}

	cmds := []tea.Cmd{m.journalCmd(eventlog.KindMemoCommitted, msg.Result.Note.ID)}
	m.session.CompleteCommit()
	m.errorMessage = ""
	m.statusText = "Saved"
	if msg.Result.CorrectionDegraded {
		m.noticeText = "saved with raw transcript (correction unavailable)"
		cmds = append(cmds, clearNoticeCmd())
	}
	cmds = append(cmds, loadNotesCmd(m.store))
	return m, tea.Batch(cmds...)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyCtrlC {
		return m, tea.Quit
	}
	switch m.mode {
	case ModeLogin:
		return m.handleLoginKey(msg)
	case ModeHome:
		return m.handleHomeKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.submitting {
		return m, nil
	}
	switch msg.String() {
	case KeyEsc:
		return m, tea.Quit

	case KeyTab, KeyDown, KeyUp:
		m.login.focusIndex = 1 - m.login.focusIndex
		return m, nil

	case KeyEnter:
		if m.login.email == "" || m.login.password == "" {
			m.login.errText = "email and password are required"
			return m, nil
		}
		m.login.submitting = true
		m.login.errText = ""
		return m, signInCmd(m.identity, m.login.email, m.login.password)

	case KeyBackspace:
		if m.login.focusIndex == 0 {
			m.login.email = trimLastRune(m.login.email)
		} else {
			m.login.password = trimLastRune(m.login.password)
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes {
		text := string(msg.Runes)
		if m.login.focusIndex == 0 {
			m.login.email += text
		} else {
			m.login.password += text
		}
	}
	return m, nil
}

func trimLastRune(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[:len(runes)-1])
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit:
		return m, tea.Quit

	case KeySpace:
		return m.toggleRecording()

	case KeyEnter:
		if m.session.State() != session.StateReview {
			return m, nil
		}
		m.stopPlayback()
		clip, ok := m.session.BeginCommit()
		if !ok {
			return m, nil
		}
		m.statusText = "Processing"
		m.errorMessage = ""
		return m, runPipelineCmd(m.runner, clip)

	case KeyDiscard:
		if m.session.State() != session.StateReview {
			return m, nil
		}
		m.stopPlayback()
		if err := m.session.Discard(); err != nil {
			return m, nil
		}
		m.statusText = "Idle"
		m.errorMessage = ""
		return m, m.journalCmd(eventlog.KindMemoDiscarded, "")

	case KeyPlay:
		return m.togglePlayback()

	case KeyJ, KeyDown:
		m.notes.MoveDown()
		return m, nil

	case KeyK, KeyUp:
		m.notes.MoveUp()
		return m, nil

	case KeyCopy:
		note, ok := m.notes.Selected()
		if !ok || m.notes.IsDeleting(note.ID) {
			return m, nil
		}
		return m, copyNoteCmd(m.clipboard, note.ID, note.Summary)

	case KeyDelete:
		note, ok := m.notes.Selected()
		if !ok || m.notes.IsDeleting(note.ID) {
			return m, nil
		}
		m.notes.MarkDeleting(note.ID)
		return m, deleteNoteCmd(m.store, note.ID)

	case KeyRefresh:
		return m, loadNotesCmd(m.store)

	case KeySignOut:
		if m.session.State() != session.StateIdle {
			return m, nil
		}
		m.identity.SignOut(context.Background())
		return m, nil
	}

	return m, nil
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	switch m.session.State() {
	case session.StateIdle:
		if err := m.session.StartRecording(context.Background()); err != nil {
			m.errorMessage = "recording failed: " + err.Error()
			return m, nil
		}
		m.statusText = "Recording"
		m.errorMessage = ""
		return m, tea.Batch(recordTickCmd(), m.journalCmd(eventlog.KindRecordingStarted, ""))

	case session.StateRecording:
		if err := m.session.StopRecording(); err != nil {
			m.errorMessage = "stopping failed: " + err.Error()
			m.statusText = "Idle"
			return m, nil
		}
		m.statusText = "Review"
		detail := fmt.Sprintf("%ds", m.session.ElapsedSeconds())
		return m, m.journalCmd(eventlog.KindRecordingStopped, detail)
	}
	return m, nil
}

// stopPlayback kills an active play process and disarms the pending
// completion message. Used when leaving Review while audio is playing.
func (m *Model) stopPlayback() {
	if m.session.Playback() == session.PlaybackStopped {
		return
	}
	_ = m.player.Stop()
	m.playbackDone = nil
	m.session.FinishPlayback()
}

func (m Model) togglePlayback() (tea.Model, tea.Cmd) {
	if m.session.State() != session.StateReview {
		return m, nil
	}
	switch m.session.Playback() {
	case session.PlaybackStopped:
		clip, ok := m.session.Clip()
		if !ok {
			return m, nil
		}
		done, err := m.player.Play(context.Background(), clip)
		if err != nil {
			m.errorMessage = "playback failed: " + err.Error()
			return m, nil
		}
		m.playbackDone = done
		_ = m.session.StartPlayback()
		return m, waitPlaybackCmd(done)

	case session.PlaybackPlaying:
		if err := m.player.Pause(); err == nil {
			_ = m.session.PausePlayback()
		}
		return m, nil

	case session.PlaybackPaused:
		if err := m.player.Resume(); err == nil {
			_ = m.session.StartPlayback()
		}
		return m, nil
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	switch m.mode {
	case ModeLogin:
		return m.renderLogin()
	case ModeHome:
		return m.renderHome()
	default:
		return m.renderLoading()
	}
}

func (m Model) renderLoading() string {
	return titleStyle.Render("MEMOVOX") + "\n\n" + dimStyle.Render("Resolving session...")
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MEMOVOX") + dimStyle.Render("  sign in") + "\n\n")

	b.WriteString(m.renderField("Email", m.login.email, m.login.focusIndex == 0))
	b.WriteString(m.renderField("Password", strings.Repeat("*", len([]rune(m.login.password))), m.login.focusIndex == 1))

	if m.login.submitting {
		b.WriteString("\n" + processingStyle.Render("Signing in...") + "\n")
	}
	if m.login.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.login.errText) + "\n")
	}

	b.WriteString("\n" + renderKeys(
		"tab", "switch field",
		"enter", "sign in",
		"esc", "quit",
	))
	return b.String()
}

func (m Model) renderField(label, value string, focused bool) string {
	cursor := "  "
	if focused {
		cursor = selectedStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s %s\n", cursor, fieldLabelStyle.Render(label+":"), value)
}

func (m Model) renderHome() string {
	var sections []string

	header := titleStyle.Render("MEMOVOX")
	if m.userEmail != "" {
		header += dimStyle.Render("  " + m.userEmail)
	}
	sections = append(sections, header)
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderNotes())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, errorStyle.Render(m.errorMessage))
	}
	if m.noticeText != "" {
		sections = append(sections, processingStyle.Render(m.noticeText))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderStatusBar() string {
	switch m.session.State() {
	case session.StateRecording:
		elapsed := time.Duration(m.session.ElapsedSeconds()) * time.Second
		return recordingDotStyle.Render("● REC") + "  " + elapsed.String()

	case session.StateReview:
		clip, _ := m.session.Clip()
		status := processingStyle.Render("■ REVIEW") + "  " + clip.Duration.Round(time.Second).String()
		switch m.session.Playback() {
		case session.PlaybackPlaying:
			status += dimStyle.Render("  playing")
		case session.PlaybackPaused:
			status += dimStyle.Render("  paused")
		}
		return status

	case session.StateProcessing:
		return processingStyle.Render("⟳ SAVING")

	default:
		bar := idleDotStyle.Render("○ IDLE")
		if m.statusText != "" && m.statusText != "Idle" {
			bar += dimStyle.Render("  " + m.statusText)
		}
		return bar
	}
}

func (m Model) renderNotes() string {
	if m.notes.loading {
		return dimStyle.Render("Loading notes...")
	}
	if m.notes.Len() == 0 {
		return dimStyle.Render("No memos yet. Press space to record one.")
	}

	var b strings.Builder
	visible := m.notesVisibleLines()
	start := 0
	if m.notes.selected >= visible {
		start = m.notes.selected - visible + 1
	}
	for i := start; i < m.notes.Len() && i < start+visible; i++ {
		note := m.notes.items[i]
		line := note.CreatedAt.Local().Format("Jan 02 15:04") + "  " + firstLine(note.Summary)

		switch {
		case m.notes.IsDeleting(note.ID):
			line = dimStyle.Render(line + "  deleting...")
		case i == m.notes.selected:
			line = selectedStyle.Render("> " + line)
		default:
			line = "  " + line
		}
		if m.notes.IsCopied(note.ID) {
			line += copiedStyle.Render("  ✓ copied")
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) notesVisibleLines() int {
	if m.height == 0 {
		return 10
	}
	reserved := 7
	if m.height-reserved < 3 {
		return 3
	}
	return m.height - reserved
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func (m Model) renderFooter() string {
	switch m.session.State() {
	case session.StateRecording:
		return renderKeys("space", "stop")
	case session.StateReview:
		return renderKeys("enter", "save", "p", "play/pause", "d", "discard")
	case session.StateProcessing:
		return renderKeys("q", "quit")
	default:
		return renderKeys(
			"space", "record",
			"j/k", "select",
			"y", "copy",
			"x", "delete",
			"r", "refresh",
			"s", "sign out",
			"q", "quit",
		)
	}
}

func renderKeys(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, footerKeyStyle.Render(pairs[i])+" "+footerDescStyle.Render(pairs[i+1]))
	}
	return strings.Join(parts, dimStyle.Render("  ·  "))
}
