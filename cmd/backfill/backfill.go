package backfill

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signalengine/src/model"
)

// Backfill pulls one-minute candles from the spot kline endpoint into the
// ohlcv_1m table, upserting on (symbol, datetime). In auto mode it resumes
// from the latest stored candle instead of the configured window.
type Backfill struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (b *Backfill) Start() error {
	b.Config = GetConfig()

	b.exchange = b.newBinanceInstance()

	if b.Config.AutoMode {
		if err := b.determineStartPoint(); err != nil {
			return err
		}
	}

	return b.fetchAndSave()
}

func (*Backfill) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (b *Backfill) fetchAndSave() error {
	klines, err := b.fetchKlines()
	if err != nil {
		return err
	}

	for i := range klines {
		k := klines[i]

		candle := &model.OHLCVCandle1m{
			Symbol:   k.Pair.String(),
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
		}

		// Upsert: on conflict on (symbol, datetime) do update
		if err := b.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "datetime"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).Create(candle).Error; err != nil {
			b.Log.WithError(err).Error("fetchAndSave, Create, ")
			return err
		}
	}

	b.Log.WithFields(logger.Fields{
		"Symbol":  b.Config.Symbol,
		"candles": len(klines),
	}).Info("OHLCV candles inserted or updated in database")

	return nil
}

func (b *Backfill) determineStartPoint() error {
	b.Config.StartDt = b.Config.StartDt.Add(-time.Minute)
	b.Config.EndDt = time.Now()

	var latestTime *sql.NullTime
	result := b.DB.Model(&model.OHLCVCandle1m{}).
		Select("MAX(datetime)").
		Where("symbol = ?", b.Config.Symbol+"_"+b.Config.Quote).
		Take(&latestTime)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			b.Log.
				WithError(result.Error).
				WithField("StartDt", b.Config.StartDt.String()).
				Error("no records found, start from the configured StartDt")
		} else {
			b.Log.
				WithError(result.Error).
				Error("Failed to query latest datetime")
			return result.Error
		}
	}

	if latestTime != nil && latestTime.Valid {
		// Resume one interval before the last recorded candle so the
		// boundary candle is refreshed too.
		b.Config.StartDt = latestTime.Time.Add(-time.Minute)
		b.Log.
			WithField("StartDt", b.Config.StartDt.String()).
			WithField("EndDt", b.Config.EndDt.String()).
			Info("determineStartPoint valid date found")
	} else {
		b.Log.
			WithField("StartDt", b.Config.StartDt.String()).
			WithField("EndDt", b.Config.EndDt.String()).
			Warn("determineStartPoint no existing candles, using configured window")
	}

	return nil
}

func (b *Backfill) fetchKlines() ([]goex.Kline, error) {
	targetSymbol := goex.NewCurrencyPair(goex.Currency{Symbol: b.Config.Symbol}, goex.Currency{Symbol: b.Config.Quote})

	const millis = 1000
	klines, err := b.exchange.GetKlineRecords(
		targetSymbol,
		goex.KLINE_PERIOD_1MIN,
		b.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", b.Config.StartDt.Unix()*millis).
			Optional("endTime", b.Config.EndDt.Unix()*millis),
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}
