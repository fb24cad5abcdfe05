package obs

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/bedrocktools/mcgate/internal/apierr"
)

func TestCountLoginChain_OutcomeCarriesErrorKind(t *testing.T) {
	CountLoginChain("device", nil)
	CountLoginChain("device", apierr.Pending())
	CountLoginChain("refresh", apierr.New(apierr.KindUpstream, "provider down"))
	CountLoginChain("refresh", errors.New("unclassified"))

	require.Equal(t, 1.0, testutil.ToFloat64(loginChainsTotal.WithLabelValues("device", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(loginChainsTotal.WithLabelValues("device", string(apierr.KindPending))))
	require.Equal(t, 2.0, testutil.ToFloat64(loginChainsTotal.WithLabelValues("refresh", string(apierr.KindUpstream))))
}
