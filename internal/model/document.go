package model

import "time"

// Document is the stored form of a Record. Field names are the persisted names,
// the derived numeric fields and response.date are indexed by the repositories.
type Document struct {
	ID        string           `json:"id,omitempty" bson:"-"`
	SessionID string           `json:"session_id" bson:"session_id"`
	GameID    int64            `json:"game_id" bson:"game_id"`
	BetAmount float64          `json:"bet_amount" bson:"bet_amount"`
	WinAmount float64          `json:"win_amount" bson:"win_amount"`
	BetProfit float64          `json:"bet_profit" bson:"bet_profit"`
	Balance   float64          `json:"balance" bson:"balance"`
	Request   RequestDocument  `json:"request" bson:"request"`
	Response  ResponseDocument `json:"response" bson:"response"`
}

type RequestDocument struct {
	Method         string              `json:"method" bson:"method"`
	Path           string              `json:"path" bson:"path"`
	Host           string              `json:"host" bson:"host"`
	URL            string              `json:"url" bson:"url"`
	QueryString    string              `json:"query_string" bson:"query_string"`
	QueryStringMap map[string][]string `json:"query_string_map" bson:"query_string_map"`
	Headers        map[string]string   `json:"headers" bson:"headers"`
	Body           map[string][]string `json:"body" bson:"body"`
	BodyFormat     string              `json:"body_format" bson:"body_format"`
}

type ResponseDocument struct {
	StatusCode int               `json:"status_code" bson:"status_code"`
	Headers    map[string]string `json:"headers" bson:"headers"`
	Body       map[string]any    `json:"body" bson:"body"`
	Date       time.Time         `json:"date" bson:"date"`
}

// IndexedFields lists the document fields that repositories index in both
// ascending and descending order.
var IndexedFields = []string{
	"game_id",
	"bet_amount",
	"win_amount",
	"bet_profit",
	"balance",
	"response.date",
}

// Document returns the stored form of the record, it shares no maps with the
// record.
func (r Record) Document() Document {
	req, res := r.Request(), r.Response()
	return Document{
		SessionID: r.sessionID,
		GameID:    r.gameID,
		BetAmount: r.betAmount,
		WinAmount: r.winAmount,
		BetProfit: r.betProfit,
		Balance:   r.balance,
		Request: RequestDocument{
			Method:         req.Method,
			Path:           req.Path,
			Host:           req.Host,
			URL:            req.URL,
			QueryString:    req.QueryString,
			QueryStringMap: req.QueryMap(),
			Headers:        req.Headers,
			Body:           req.Body,
			BodyFormat:     req.BodyFormat,
		},
		Response: ResponseDocument{
			StatusCode: res.StatusCode,
			Headers:    res.Headers,
			Body:       res.Body,
			Date:       res.Date,
		},
	}
}
