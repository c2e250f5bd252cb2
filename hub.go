package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nock-and-loose/server/internal/telemetry"
	"nock-and-loose/server/logging"
	netlog "nock-and-loose/server/logging/network"
)

const broadcastBytesMetricKey = "broadcast_bytes_total"

// ResultArchiver receives the final ledger when a match ends. Persistence
// stays outside the core; a nil archiver is valid.
type ResultArchiver interface {
	ArchiveResult(ctx context.Context, result MatchResult) error
}

// HubConfig wires the hub collaborators and tunables.
type HubConfig struct {
	AmmoPerPlayer  int
	CommandBuffer  int
	Scoring        ScoringTable
	Publisher      logging.Publisher
	Logger         telemetry.Logger
	Metrics        telemetry.Metrics
	Archiver       ResultArchiver
	OnPlayerJoined func(playerID, name string)
	OnPlayerLeft   func(playerID string)
}

// DefaultHubConfig returns the tunables used when the host overrides
// nothing.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		AmmoPerPlayer: defaultAmmoPerPlayer,
		CommandBuffer: defaultCommandBuffer,
		Scoring:       DefaultScoringTable(),
	}
}

type subscriber struct {
	conn          *websocket.Conn
	mu            sync.Mutex
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// WriteMessage serializes writes to the underlying connection.
func (s *subscriber) WriteMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

type lobbyPlayer struct {
	id        string
	name      string
	teamIndex int
}

// Hub owns the live subscribers and the one match session of this process.
// It stages inbound commands in a ring buffer and drains them on a single
// loop, so the session sees one request at a time. Hub methods never call
// the session while holding h.mu; session sink callbacks may take h.mu.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	lobby       map[string]lobbyPlayer
	lobbyOrder  []string

	session   *Session
	authority *Authority
	commands  *CommandBuffer
	seq       atomic.Uint64

	// pendingShotID correlates the shotFired and hitRegistered broadcasts
	// of the request currently being processed. Safe because processing is
	// serialized.
	pendingShotID string

	cfg     HubConfig
	pub     logging.Publisher
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// NewHub constructs a hub plus the session it hosts. The hub is the
// authority side; it keeps the capability object to itself.
func NewHub(resolver *Resolver, cfg HubConfig) *Hub {
	if cfg.AmmoPerPlayer <= 0 {
		cfg.AmmoPerPlayer = defaultAmmoPerPlayer
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = defaultCommandBuffer
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	h := &Hub{
		subscribers: make(map[string]*subscriber),
		lobby:       make(map[string]lobbyPlayer),
		lobbyOrder:  make([]string, 0),
		commands:    NewCommandBuffer(cfg.CommandBuffer, cfg.Metrics),
		cfg:         cfg,
		pub:         pub,
		logger:      logger,
		metrics:     cfg.Metrics,
	}

	session, authority := NewSession(resolver, SessionConfig{
		Scoring:   cfg.Scoring,
		Publisher: pub,
	})
	session.SetSink(h)
	h.session = session
	h.authority = authority
	return h
}

// Session exposes the read surface.
func (h *Hub) Session() *Session {
	return h.session
}

// Authority exposes the mutation capability to the hosting process.
func (h *Hub) Authority() *Authority {
	return h.authority
}

// Join registers a new lobby player and returns the current snapshot.
func (h *Hub) Join(name string) JoinResponse {
	playerID := uuid.NewString()
	if name == "" {
		name = "archer-" + playerID[:8]
	}

	h.mu.Lock()
	player := lobbyPlayer{
		id:        playerID,
		name:      name,
		teamIndex: len(h.lobbyOrder) % 2,
	}
	h.lobby[playerID] = player
	h.lobbyOrder = append(h.lobbyOrder, playerID)
	h.mu.Unlock()

	if h.cfg.OnPlayerJoined != nil {
		h.cfg.OnPlayerJoined(playerID, name)
	}
	h.logger.Printf("player %s joined as %q", playerID, name)

	return JoinResponse{
		Ver:     ProtocolVersion,
		ID:      playerID,
		Name:    name,
		Running: h.session.Running(),
		Scoring: h.session.Scoring(),
		Ledger:  h.session.Entries(),
	}
}

// Subscribe attaches a websocket connection to a joined player and returns
// the welcome snapshot to send.
func (h *Hub) Subscribe(playerID string, conn *websocket.Conn) (*subscriber, WelcomeMessage, bool) {
	if !h.known(playerID) {
		return nil, WelcomeMessage{}, false
	}

	sub := &subscriber{conn: conn, lastHeartbeat: time.Now()}

	h.mu.Lock()
	if existing, ok := h.subscribers[playerID]; ok {
		existing.conn.Close()
	}
	h.subscribers[playerID] = sub
	h.mu.Unlock()

	netlog.Subscribed(context.Background(), h.pub, logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer})

	welcome := WelcomeMessage{
		Ver:     ProtocolVersion,
		Type:    "welcome",
		Seq:     h.seq.Add(1),
		ID:      playerID,
		Running: h.session.Running(),
		Scoring: h.session.Scoring(),
		Ledger:  h.session.Entries(),
	}
	return sub, welcome, true
}

func (h *Hub) known(playerID string) bool {
	h.mu.Lock()
	_, inLobby := h.lobby[playerID]
	h.mu.Unlock()
	if inLobby {
		return true
	}
	_, inLedger := h.session.Entry(playerID)
	return inLedger
}

// Disconnect removes a player's subscriber and lobby slot. The ledger
// entry, if any, survives so final scores stay queryable.
func (h *Hub) Disconnect(playerID string, reason string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[playerID]
	if subOK {
		delete(h.subscribers, playerID)
	}
	_, lobbyOK := h.lobby[playerID]
	if lobbyOK {
		delete(h.lobby, playerID)
		for i, id := range h.lobbyOrder {
			if id == playerID {
				h.lobbyOrder = append(h.lobbyOrder[:i], h.lobbyOrder[i+1:]...)
				break
			}
		}
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if lobbyOK && h.cfg.OnPlayerLeft != nil {
		h.cfg.OnPlayerLeft(playerID)
	}
	if subOK || lobbyOK {
		netlog.Disconnected(context.Background(), h.pub,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			netlog.DisconnectedPayload{Reason: reason})
	}
}

// EnqueueFire stages a fire intent for the hub loop. A full ring drops the
// command; the client re-sends if it cares.
func (h *Hub) EnqueueFire(playerID string, req ShotRequest) bool {
	ok := h.commands.Push(Command{
		ActorID:  playerID,
		Type:     CommandFire,
		IssuedAt: time.Now(),
		Fire:     &FireCommand{Request: req},
	})
	if !ok {
		netlog.CommandDropped(context.Background(), h.pub,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			netlog.CommandDroppedPayload{Command: string(CommandFire)})
	}
	return ok
}

// UpdateHeartbeat records the most recent heartbeat time and RTT.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscribers[playerID]
	if !ok {
		return 0, false
	}
	sub.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			sub.lastRTT = rtt
		}
	}
	return sub.lastRTT, true
}

// RosterFromLobby derives an ordered roster from the players currently in
// the lobby.
func (h *Hub) RosterFromLobby() []RosterSlot {
	h.mu.Lock()
	defer h.mu.Unlock()
	roster := make([]RosterSlot, 0, len(h.lobbyOrder))
	for _, id := range h.lobbyOrder {
		player, ok := h.lobby[id]
		if !ok {
			continue
		}
		roster = append(roster, RosterSlot{
			PlayerID:  player.id,
			Name:      player.name,
			TeamIndex: player.teamIndex,
		})
	}
	return roster
}

// StartMatch starts (or restarts) a match. A nil roster means "everyone in
// the lobby"; zero ammunition falls back to the configured allowance.
func (h *Hub) StartMatch(roster []RosterSlot, ammoPerPlayer int) error {
	if roster == nil {
		roster = h.RosterFromLobby()
	}
	if ammoPerPlayer == 0 {
		ammoPerPlayer = h.cfg.AmmoPerPlayer
	}
	return h.authority.Start(roster, ammoPerPlayer)
}

// EndMatch ends the match and hands the final ledger to the archiver, if
// one is configured. Repeated calls are no-ops.
func (h *Hub) EndMatch(winnerID string) bool {
	ended := h.authority.End(winnerID)
	if !ended {
		return false
	}
	if h.cfg.Archiver != nil {
		result := h.session.Result(winnerID)
		result.EndedAt = time.Now().UnixMilli()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.cfg.Archiver.ArchiveResult(ctx, result); err != nil {
				h.logger.Printf("failed to archive match result: %v", err)
			}
		}()
	}
	return true
}

// UpdateScoring replaces the scoring table.
func (h *Hub) UpdateScoring(table ScoringTable) {
	h.authority.UpdateScoringTable(table)
}

// Run drives the command loop until the stop channel closes.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(processInterval)
	defer ticker.Stop()

	lastPrune := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			for _, cmd := range h.commands.Drain() {
				h.process(cmd)
			}
			if now.Sub(lastPrune) >= time.Second {
				h.pruneStale(now)
				lastPrune = now
			}
		}
	}
}

func (h *Hub) process(cmd Command) {
	switch cmd.Type {
	case CommandFire:
		if cmd.Fire == nil {
			return
		}
		h.session.SubmitShot(cmd.Fire.Request, cmd.ActorID)
	case CommandHeartbeat:
		if cmd.Heartbeat == nil {
			return
		}
		h.UpdateHeartbeat(cmd.ActorID, cmd.Heartbeat.ReceivedAt, cmd.Heartbeat.ClientSent)
	}
}

func (h *Hub) pruneStale(now time.Time) {
	h.mu.Lock()
	stale := make([]string, 0)
	for id, sub := range h.subscribers {
		if now.Sub(sub.lastHeartbeat) > disconnectAfter {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.logger.Printf("disconnecting %s due to heartbeat timeout", id)
		h.Disconnect(id, "heartbeat_timeout")
	}
}

func (h *Hub) nextSeq() uint64 {
	return h.seq.Add(1)
}

// MatchStarted implements EventSink.
func (h *Hub) MatchStarted(entries []PlayerLedgerEntry, ammo int) {
	h.broadcast(MatchStartedMessage{
		Ver:    ProtocolVersion,
		Type:   "matchStarted",
		Seq:    h.nextSeq(),
		Ammo:   ammo,
		Ledger: entries,
	})
}

// ShotFired implements EventSink. It assigns the shot id that the matching
// hitRegistered broadcast reuses.
func (h *Hub) ShotFired(req ShotRequest) {
	h.pendingShotID = uuid.NewString()
	h.broadcast(ShotFiredMessage{
		Ver:     ProtocolVersion,
		Type:    "shotFired",
		Seq:     h.nextSeq(),
		ShotID:  h.pendingShotID,
		Request: req,
	})
}

// HitRegistered implements EventSink.
func (h *Hub) HitRegistered(out ShotOutcome) {
	shotID := h.pendingShotID
	h.pendingShotID = ""
	h.broadcast(HitRegisteredMessage{
		Ver:     ProtocolVersion,
		Type:    "hitRegistered",
		Seq:     h.nextSeq(),
		ShotID:  shotID,
		Outcome: out,
	})
}

// ScoreChanged implements EventSink.
func (h *Hub) ScoreChanged(playerID string, score int) {
	h.broadcast(ScoreChangedMessage{
		Ver:      ProtocolVersion,
		Type:     "scoreChanged",
		Seq:      h.nextSeq(),
		PlayerID: playerID,
		Score:    score,
	})
}

// MatchEnded implements EventSink.
func (h *Hub) MatchEnded(winnerID string) {
	h.broadcast(MatchEndedMessage{
		Ver:      ProtocolVersion,
		Type:     "matchEnded",
		Seq:      h.nextSeq(),
		WinnerID: winnerID,
	})
}

// ScoringTableChanged implements EventSink.
func (h *Hub) ScoringTableChanged(table ScoringTable) {
	h.broadcast(ScoringTableMessage{
		Ver:     ProtocolVersion,
		Type:    "scoringTable",
		Seq:     h.nextSeq(),
		Scoring: table,
	})
}

// broadcast sends one wire message to every subscriber.
func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("failed to marshal broadcast: %v", err)
		return
	}
	if h.metrics != nil {
		h.metrics.Add(broadcastBytesMetricKey, uint64(len(data)))
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(data); err != nil {
			h.logger.Printf("failed to send update to %s: %v", id, err)
			h.Disconnect(id, "write_failed")
		}
	}
}
