package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
)

// In-memory фейки репозиториев для тестов сервисного слоя.
// Параметр exec игнорируется: фейки не различают транзакции.

type fakePlayerRepo struct {
	nextID  int
	players map[int]*models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{nextID: 1, players: make(map[int]*models.Player)}
}

func (r *fakePlayerRepo) Create(_ context.Context, p *models.Player) error {
	for _, existing := range r.players {
		if existing.Email == p.Email {
			return repositories.ErrPlayerEmailConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	cp := *p
	r.players[p.ID] = &cp
	return nil
}

func (r *fakePlayerRepo) GetByID(_ context.Context, id int) (*models.Player, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlayerRepo) GetByEmail(_ context.Context, email string) (*models.Player, error) {
	for _, p := range r.players {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) Update(_ context.Context, p *models.Player) error {
	if _, ok := r.players[p.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	cp := *p
	r.players[p.ID] = &cp
	return nil
}

func (r *fakePlayerRepo) UpdateRole(_ context.Context, id int, role models.PlayerRole) error {
	p, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Role = role
	return nil
}

func (r *fakePlayerRepo) ListByIDs(_ context.Context, ids []int) ([]*models.Player, error) {
	out := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.players[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeTournamentRepo struct {
	nextID      int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now()
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.City != nil && t.City != *filter.City {
			continue
		}
		if filter.State != nil && t.State != *filter.State {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) CountByNameLevelLocation(_ context.Context, name string, ntrpLevel float64, city, state string) (int, error) {
	count := 0
	for _, t := range r.tournaments {
		if t.Name == name && t.NTRPLevel == ntrpLevel && t.City == city && t.State == state {
			count++
		}
	}
	return count, nil
}

func (r *fakeTournamentRepo) ListOpenActiveByLocationLevel(_ context.Context, city, state string, ntrpLevel float64) ([]models.Tournament, error) {
	out := []models.Tournament{}
	for _, t := range r.tournaments {
		if t.City == city && t.State == state && t.NTRPLevel == ntrpLevel &&
			(t.Status == models.StatusOpen || t.Status == models.StatusActive) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) GetTournamentsForAutoStatusUpdate(_ context.Context, _ repositories.SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	out := []*models.Tournament{}
	for _, t := range r.tournaments {
		if t.Status == models.StatusOpen && !t.StartDate.After(currentTime) {
			cp := *t
			out = append(out, &cp)
			continue
		}
		if t.Status == models.StatusActive && !t.EndDate.After(currentTime) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeParticipantRepo struct {
	nextID       int
	participants map[int]*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{nextID: 1, participants: make(map[int]*models.Participant)}
}

func (r *fakeParticipantRepo) Create(_ context.Context, p *models.Participant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID && existing.PlayerID == p.PlayerID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	cp := *p
	r.participants[p.ID] = &cp
	return nil
}

func (r *fakeParticipantRepo) FindByID(_ context.Context, id int) (*models.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeParticipantRepo) FindByPlayerAndTournament(_ context.Context, playerID, tournamentID int) (*models.Participant, error) {
	for _, p := range r.participants {
		if p.PlayerID == playerID && p.TournamentID == tournamentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, tournamentID int, _ bool) ([]*models.Participant, error) {
	out := []*models.Participant{}
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) CountByTournament(_ context.Context, tournamentID int) (int, error) {
	count := 0
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) UpdateRankingFields(_ context.Context, _ repositories.SQLExecutor, p *models.Participant) error {
	stored, ok := r.participants[p.ID]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	stored.CurrentPosition = p.CurrentPosition
	stored.Points = p.Points
	stored.Wins = p.Wins
	stored.Losses = p.Losses
	return nil
}

func (r *fakeParticipantRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	for id, p := range r.participants {
		if p.TournamentID == tournamentID {
			delete(r.participants, id)
		}
	}
	return nil
}

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) Create(_ context.Context, m *models.Match) error {
	m.ID = r.nextID
	r.nextID++
	m.CreatedAt = time.Now()
	cp := *m
	r.matches[m.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	out := []*models.Match{}
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && m.Status != *statusFilter {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeMatchRepo) ListByPlayer(_ context.Context, playerID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	out := []*models.Match{}
	for _, m := range r.matches {
		if !m.HasPlayer(playerID) {
			continue
		}
		if statusFilter != nil && m.Status != *statusFilter {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus, confirmedDate *time.Time) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	if confirmedDate != nil {
		m.ConfirmedDate = confirmedDate
	}
	return nil
}

func (r *fakeMatchRepo) CompleteWithScore(_ context.Context, _ repositories.SQLExecutor, id int, winnerID int, score string, confirmed bool) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = models.MatchStatusCompleted
	m.WinnerID = &winnerID
	m.Score = &score
	m.Confirmed = confirmed
	return nil
}

func (r *fakeMatchRepo) CompleteWithGameScores(_ context.Context, _ repositories.SQLExecutor, id int, winnerID int, reporterID int, gameScores []models.GameScore) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = models.MatchStatusCompleted
	m.WinnerID = &winnerID
	m.GameScores = gameScores
	m.ReportedBy = &reporterID
	m.Confirmed = false
	return nil
}

func (r *fakeMatchRepo) SetConfirmed(_ context.Context, _ repositories.SQLExecutor, id int, confirmedAt time.Time) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Confirmed = true
	m.ConfirmedDate = &confirmedAt
	return nil
}

func (r *fakeMatchRepo) MarkRankingApplied(_ context.Context, _ repositories.SQLExecutor, id int, appliedAt time.Time) error {
	m, ok := r.matches[id]
	if !ok {
		return nil
	}
	if m.RankingAppliedAt == nil {
		m.RankingAppliedAt = &appliedAt
	}
	return nil
}

func (r *fakeMatchRepo) CancelStaleProposals(_ context.Context, _ repositories.SQLExecutor, cutoff, currentTime time.Time) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.Status != models.MatchStatusProposed {
			continue
		}
		if m.CreatedAt.Before(cutoff) || m.ProposedDate.Before(currentTime) {
			m.Status = models.MatchStatusCancelled
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	for id, m := range r.matches {
		if m.TournamentID == tournamentID {
			delete(r.matches, id)
		}
	}
	return nil
}

type fakeCourtRepo struct {
	nextID int
	courts map[int]*models.Court
}

func newFakeCourtRepo() *fakeCourtRepo {
	return &fakeCourtRepo{nextID: 1, courts: make(map[int]*models.Court)}
}

func (r *fakeCourtRepo) Create(_ context.Context, c *models.Court) error {
	for _, existing := range r.courts {
		if existing.Name == c.Name && existing.City == c.City {
			return repositories.ErrCourtNameConflict
		}
	}
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now()
	cp := *c
	r.courts[c.ID] = &cp
	return nil
}

func (r *fakeCourtRepo) GetByID(_ context.Context, id int) (*models.Court, error) {
	c, ok := r.courts[id]
	if !ok {
		return nil, repositories.ErrCourtNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCourtRepo) List(_ context.Context, filter repositories.ListCourtsFilter) ([]models.Court, error) {
	out := []models.Court{}
	for _, c := range r.courts {
		if filter.City != nil && c.City != *filter.City {
			continue
		}
		if filter.State != nil && c.State != *filter.State {
			continue
		}
		if filter.Sport != nil && c.Sport != *filter.Sport {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCourtRepo) ListByIDs(_ context.Context, ids []int64) ([]models.Court, error) {
	out := []models.Court{}
	for _, id := range ids {
		if c, ok := r.courts[int(id)]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCourtRepo) Update(_ context.Context, c *models.Court) error {
	if _, ok := r.courts[c.ID]; !ok {
		return repositories.ErrCourtNotFound
	}
	cp := *c
	r.courts[c.ID] = &cp
	return nil
}

func (r *fakeCourtRepo) UpdatePhotoKey(_ context.Context, id int, photoKey *string) error {
	c, ok := r.courts[id]
	if !ok {
		return repositories.ErrCourtNotFound
	}
	c.PhotoKey = photoKey
	return nil
}

func (r *fakeCourtRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.courts[id]; !ok {
		return repositories.ErrCourtNotFound
	}
	delete(r.courts, id)
	return nil
}

// fakeTx удовлетворяет Tx; фейковые репозитории игнорируют executor,
// поэтому SQL-методы никогда не вызываются.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("fakeTx: unexpected ExecContext call")
}

func (t *fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("fakeTx: unexpected QueryContext call")
}

func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeTxBeginner struct {
	txs []*fakeTx
}

func (b *fakeTxBeginner) BeginTx(_ context.Context, _ *sql.TxOptions) (Tx, error) {
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

// fakeBroadcaster копит события для проверок.
type fakeBroadcaster struct {
	events []broadcastEvent
}

type broadcastEvent struct {
	RoomID string
	Type   string
}

func (b *fakeBroadcaster) BroadcastEvent(roomID, eventType string, _ interface{}) {
	b.events = append(b.events, broadcastEvent{RoomID: roomID, Type: eventType})
}
