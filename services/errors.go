package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed     = errors.New("validation failed")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidNTRPRating    = errors.New("ntrp rating must be between 1.0 and 7.0 in steps of 0.5")
	ErrAlreadyJoined        = errors.New("player already joined this tournament")
	ErrTournamentFull       = errors.New("tournament full")
	ErrJoinNotOpen          = errors.New("tournament is not open for registration")
	ErrSkillGapConfirmation = errors.New("player rating differs from tournament level by more than 0.5; explicit confirmation required")

	// Ошибки жизненного цикла матча
	ErrSelfChallenge           = errors.New("cannot challenge yourself")
	ErrOpponentNotEligible     = errors.New("opponent must rank above the challenger by 1 to 3 positions")
	ErrProposedDateTooSoon     = errors.New("match must be proposed at least one hour in advance")
	ErrProposedDateTooFar      = errors.New("match cannot be proposed more than 30 days in advance")
	ErrNotChallengedPlayer     = errors.New("only the challenged player can respond")
	ErrNotMatchParticipant     = errors.New("player is not a participant of this match")
	ErrMatchNotProposed        = errors.New("match is not awaiting a response")
	ErrMatchNotAccepted        = errors.New("match must be accepted before a score can be reported")
	ErrInvalidWinner           = errors.New("winner must be one of the match participants")
	ErrInvalidDecision         = errors.New("decision must be accept or decline")
	ErrMatchAlreadyConfirmed   = errors.New("match result is already confirmed")
	ErrMatchNotAwaitingConfirm = errors.New("match result is not awaiting confirmation")
	ErrSelfConfirmation        = errors.New("result must be confirmed by the other participant")
	ErrNoGameScores            = errors.New("at least one game score is required")
	ErrTiedGameScores          = errors.New("game scores must produce a majority winner")

	// Ошибки конфликтов
	ErrPlayerEmailConflict = errors.New("email address is already in use")
	ErrTournamentDuplicate = errors.New("duplicate tournament")
	ErrTournamentCapacity  = errors.New("capacity exceeded for this level/location/timeframe")
	ErrCourtNameConflict   = errors.New("court name is already in use in this city")

	// Ошибки аутентификации и авторизации
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrCourtNotFound       = errors.New("court not found")

	// Ошибки турниров
	ErrTournamentInvalidDateRange        = errors.New("invalid date range")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
