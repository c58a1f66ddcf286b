package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ValentinKolb/scallionDB/rpc/common"
	"github.com/ValentinKolb/scallionDB/rpc/transport"
	"github.com/ValentinKolb/scallionDB/rpc/transport/tcp"
	"github.com/ValentinKolb/scallionDB/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (SCALLION_<flag>)
	EnvPrefix = "scallion"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and binds environment variables to viper
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int64(key, 10000, WrapString("Request timeout in milliseconds sent to the server, 0 uses the server default"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int64(key, 5000, WrapString("Timeout in milliseconds for establishing a connection"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "localhost:5555", WrapString("The address of the scallionDB server (host:port or socket path). Multiple endpoints can be specified as a comma-separated list"))

	key = "conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry sending a request"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoints:              strings.Split(viper.GetString("endpoints"), ","),
		Transport:              viper.GetString("transport"),
		TimeoutMs:              viper.GetInt64("timeout"),
		ConnectTimeoutMs:       viper.GetInt64("connect-timeout"),
		RetryCount:             viper.GetInt("retries"),
		ConnectionsPerEndpoint: viper.GetInt("conn-per-endpoint"),
	}
}

// GetClientTransport creates a client transport for the given name
func GetClientTransport(name string) (transport.IRPCClientTransport, error) {
	switch name {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// GetServerTransport creates a server transport for the given name
func GetServerTransport(name string) (transport.IRPCServerTransport, error) {
	switch name {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// ParseJSONArg decodes a JSON command line argument
func ParseJSONArg(what, arg string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return nil, fmt.Errorf("%s must be valid JSON: %w", what, err)
	}
	return v, nil
}

// ParseAttrList turns "a,b" into a list and "*" or "" into nil (all attributes)
func ParseAttrList(arg string) []string {
	arg = strings.TrimSpace(arg)
	if arg == "" || arg == "*" {
		return nil
	}
	var attrs []string
	for _, a := range strings.Split(arg, ",") {
		if a = strings.TrimSpace(a); a != "" {
			attrs = append(attrs, a)
		}
	}
	return attrs
}
