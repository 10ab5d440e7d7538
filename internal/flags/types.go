package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Flag keys read by the trader hot path.
const (
	KeySubmit   = "trader.submit"
	KeyRacing   = "trader.racing"
	KeyShowBuy  = "trader.show_buy"
	KeyShowSell = "trader.show_sell"
	KeyDebug    = "trader.debug"
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Runtime is the switch set the decision path consults per transaction.
type Runtime struct {
	Submit   bool `json:"submit"`
	Racing   bool `json:"racing"`
	ShowBuy  bool `json:"show_buy"`
	ShowSell bool `json:"show_sell"`
	Debug    bool `json:"debug"`
}

// apply overrides r with any known keys present in values.
func (r Runtime) apply(values map[string]bool) Runtime {
	for key, dst := range map[string]*bool{
		KeySubmit:   &r.Submit,
		KeyRacing:   &r.Racing,
		KeyShowBuy:  &r.ShowBuy,
		KeyShowSell: &r.ShowSell,
		KeyDebug:    &r.Debug,
	} {
		if v, ok := values[key]; ok {
			*dst = v
		}
	}
	return r
}
