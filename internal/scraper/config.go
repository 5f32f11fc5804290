package scraper

import "tigerscraper/internal/browser"

const DefaultGameURL = "https://m.pgsoft-games.com/126/index.html?l=pt&ot=ca7094186b309ee149c55c8822e7ecf2&btt=2&from=https://pgdemo.asia/&language=pt-BR&__refer=m.pg-redirect.net&or=static.pgsoft-games.com"

const (
	ModeAuto   = "auto"
	ModeSingle = "single"
)

// Bands are the click targets on the canvas.
type Bands struct {
	Calibrate browser.Band `json:"calibrate"`
	Turbo     browser.Band `json:"turbo"`
	Bet       browser.Band `json:"bet"`
	Auto      browser.Band `json:"auto"`
	Ten       browser.Band `json:"ten"`
	Start     browser.Band `json:"start"`
}

func DefaultBands() Bands {
	return Bands{
		Calibrate: browser.Band{Left: 20, Right: 25, Top: 40, Bottom: 45},
		Turbo:     browser.Band{Left: -41, Right: -38, Top: 36, Bottom: 39},
		Bet:       browser.Band{Left: -3, Right: 0, Top: 36, Bottom: 39},
		Auto:      browser.Band{Left: 38, Right: 41, Top: 36, Bottom: 39},
		Ten:       browser.Band{Left: -35, Right: -30, Top: 27, Bottom: 30},
		Start:     browser.Band{Left: 0, Right: 5, Top: 37, Bottom: 40},
	}
}

type Config struct {
	GameURL string `json:"game_url"`
	// Mode is either "auto" (start 10 automatic spins per round) or "single".
	Mode string `json:"mode"`

	// CalibrationBet is the bet (in cents) the game shows after the
	// calibration clicks when it is not blocked.
	CalibrationBet    int64 `json:"calibration_bet"`
	CalibrationClicks int   `json:"calibration_clicks"`
	// MaxCalibrationAttempts is the number of sessions tried before giving up
	// with ErrBlocked, 0 means unlimited.
	MaxCalibrationAttempts int `json:"max_calibration_attempts"`

	// ReadyPollLimit is the number of readiness polls after which a round is
	// considered frozen, 0 means unlimited.
	ReadyPollLimit int `json:"ready_poll_limit"`

	PollIntervalMs     int `json:"poll_interval_ms"`
	CalibrationPauseMs int `json:"calibration_pause_ms"`
	ActionPauseMs      int `json:"action_pause_ms"`

	Bands Bands `json:"bands"`
}

func DefaultConfig() Config {
	return Config{
		GameURL:            DefaultGameURL,
		Mode:               ModeAuto,
		CalibrationBet:     4500,
		CalibrationClicks:  15,
		PollIntervalMs:     1000,
		CalibrationPauseMs: 500,
		ActionPauseMs:      1000,
		Bands:              DefaultBands(),
	}
}
