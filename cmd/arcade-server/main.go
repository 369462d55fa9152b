// arcade-server hosts small multiplayer games (Snake, TicTacToe,
// Numbers-Match, Stack-Attack, 2048) for remote players and bots, with
// deterministic recording and group replay of finished matches.
//
// Usage:
//
//	arcade-server serve             - start the game server
//	arcade-server version           - print the engine version
//
// The listen address comes from --listen, the config file, or the
// ARCADE_LISTEN_ADDR environment variable.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/arcade-online/internal/core"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arcade-server",
	Short: "Multi-game arcade server with lobbies, bots and replays",
	Long: `arcade-server hosts turn- and tick-based games for remote players:
multiplayer Snake, m-in-a-row TicTacToe with a minimax bot, the
Numbers-Match puzzle, cooperative Stack-Attack and 2048.

Finished matches are recorded deterministically and can be replayed,
alone or as a group, at variable speed.

Examples:
  arcade-server serve
  arcade-server serve --listen :9000
  arcade-server serve --config ./configs/server.yaml --db ./matches.db`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(core.EngineVersion)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
