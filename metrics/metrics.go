package metrics

import (
	"time"

	rpcMetrics "github.com/filecoin-project/go-jsonrpc/metrics"
	"github.com/ipfs-force-community/metrics"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Global Tags
var (
	AccountKey, _ = tag.NewKey("account")
	TokenKey, _   = tag.NewKey("token")
	OriginKey, _  = tag.NewKey("origin")
)

// Distribution
var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000, 4000, 5000, 7500, 10000, 20000, 50000, 100000)

var (
	// pairing
	WalletRegister   = stats.Int64("pairing/register", "Wallet channel registered", stats.UnitDimensionless)
	WalletUnregister = stats.Int64("pairing/unregister", "Wallet channel unregistered", stats.UnitDimensionless)
	WalletConnNum    = metrics.NewInt64("pairing/conn_num", "Wallet connection count", stats.UnitDimensionless)

	// session
	SessionConnect    = stats.Int64("session/connect", "Session connected", stats.UnitDimensionless)
	SessionDisconnect = stats.Int64("session/disconnect", "Session disconnected", stats.UnitDimensionless)
	SessionRestore    = stats.Int64("session/restore", "Session restored from storage", stats.UnitDimensionless)

	// lifecycle stages
	AssetCreate   = stats.Float64("lifecycle/asset_create", "Asset class create spent time", stats.UnitMilliseconds)
	UnitMint      = stats.Float64("lifecycle/unit_mint", "Unit mint spent time", stats.UnitMilliseconds)
	MetadataAmend = stats.Float64("lifecycle/metadata_amend", "Metadata amend spent time", stats.UnitMilliseconds)

	ApiState = metrics.NewInt64("api/state", "api service state. 0: down, 1: up", "")
)

var (
	walletRegisterView = &view.View{
		Measure:     WalletRegister,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey, OriginKey},
	}
	walletUnregisterView = &view.View{
		Measure:     WalletUnregister,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey, OriginKey},
	}

	sessionConnectView = &view.View{
		Measure:     SessionConnect,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey},
	}
	sessionDisconnectView = &view.View{
		Measure:     SessionDisconnect,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey},
	}
	sessionRestoreView = &view.View{
		Measure:     SessionRestore,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey},
	}

	assetCreateView = &view.View{
		Measure:     AssetCreate,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{AccountKey},
	}
	unitMintView = &view.View{
		Measure:     UnitMint,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{AccountKey, TokenKey},
	}
	metadataAmendView = &view.View{
		Measure:     MetadataAmend,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{AccountKey, TokenKey},
	}
)

var views = append([]*view.View{
	walletRegisterView,
	walletUnregisterView,
	sessionConnectView,
	sessionDisconnectView,
	sessionRestoreView,
	assetCreateView,
	unitMintView,
	metadataAmendView,
}, rpcMetrics.DefaultViews...)

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

func init() {
	// register metrics
	_ = view.Register(views...)
}
