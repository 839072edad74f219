package worker

import "time"

// dateLayout is the calendar-day format used on the wire.
const dateLayout = "2006-01-02"

type historicalPoint struct {
	Date     string `json:"date"`
	Quantity int    `json:"quantity"`
}

type request struct {
	HistoricalData []historicalPoint `json:"historical_data"`
	Horizon        int               `json:"horizon"`
}

// Prediction is one forecast step returned by the worker.
type Prediction struct {
	Period    int      `json:"period"`
	Date      string   `json:"date"`
	Predicted float64  `json:"predicted"`
	Lower95   *float64 `json:"lower95"`
	Upper95   *float64 `json:"upper95"`
}

// Metrics are the fit statistics reported by the worker. Every field is optional.
type Metrics struct {
	MAE             *float64 `json:"mae"`
	RMSE            *float64 `json:"rmse"`
	R2Score         *float64 `json:"r2_score"`
	Accuracy        *float64 `json:"accuracy"`
	TrainingSamples *int     `json:"training_samples"`
}

type response struct {
	Predictions []Prediction `json:"predictions"`
	Metrics     Metrics      `json:"metrics"`
	Error       string       `json:"error"`
	Traceback   string       `json:"traceback"`
}

// Output is the decoded result of a successful model call.
type Output struct {
	Predictions []Prediction
	Metrics     Metrics
	Elapsed     time.Duration
}
