package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/DeFirence/steam-condenser/internal/db"
	"github.com/DeFirence/steam-condenser/internal/repo"
)

var (
	serversCmd = &cobra.Command{
		Use:   "servers",
		Short: "List the tracked servers",
		Run:   startServers,
	}
	serversFlags = struct {
		Limit int64
	}{}
)

func init() {
	serversCmd.Flags().Int64Var(&serversFlags.Limit, "limit", 100, "the maximum amount of servers to list")
	Root.AddCommand(serversCmd)
}

func startServers(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	db.RegisterPragmaHook(10000)
	rdb, wdb, err := db.OpenReadWrite(ctx, rootFlags.DB, db.OpenOptions{})
	if err != nil {
		exitWithError(err.Error())
		return
	}
	defer rdb.Close()
	defer wdb.Close()

	servers, err := repo.New(rdb).ListServers(ctx, serversFlags.Limit)
	if err != nil {
		exitWithError(err.Error())
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Address", "Name", "Game", "Map", "Players", "Ping", "Last Seen"})
	for _, server := range servers {
		ping := "-"
		if server.LastPingMs != nil {
			ping = fmt.Sprintf("%dms", *server.LastPingMs)
		}

		table.Append([]string{
			server.Addr(),
			server.Name,
			server.Game,
			server.Map,
			strconv.Itoa(server.Players) + "/" + strconv.Itoa(server.MaxPlayers),
			ping,
			server.LastSeenAt.UTC().Format(time.RFC3339),
		})
	}
	table.Render()
}
