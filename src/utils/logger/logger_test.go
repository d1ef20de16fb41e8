package logger

import (
	"testing"

	"github.com/warp-contracts/licensing/src/utils/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	defer func() {
		logger = logrus.New()
	}()

	conf := config.Default()
	require.Nil(t, Init(conf))
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())
	require.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	conf.LogFormat = "json"
	conf.LogLevel = "warn"
	require.Nil(t, Init(conf))
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	conf.LogFormat = "xml"
	require.NotNil(t, Init(conf))

	conf.LogLevel = "loud"
	require.NotNil(t, Init(conf))
}
