package banner

import (
	"fmt"

	"chatrelay/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██║     ███████║███████║   ██║   ██████╔╝█████╗  ██║     ███████║ ╚████╔╝ 
██║     ██╔══██║██╔══██║   ██║   ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝  
╚██████╗██║  ██║██║  ██║   ██║   ██║  ██║███████╗███████╗██║  ██║   ██║   
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝   
`

// PrintWithEff prints the startup banner using the effective config.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config sources: %s\n", src)
	if eff.Config != nil {
		fmt.Printf("Echo to sender: %v\n", eff.Config.EchoToSender())
		if eff.Config.Retention.Enabled {
			fmt.Printf("Retention: cron=%q max_age=%s\n", eff.Config.Retention.Cron, eff.Config.RetentionMaxAge())
		}
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("WS   /ws/{username} - Connect for live delivery and presence")
	fmt.Println("POST /v1/messages - Send a message (JSON: content, receiver; identity via X-Username)")
	fmt.Println("GET  /v1/messages/{username}?with=<user>&limit=<n> - Message history, newest first")
	fmt.Println("GET  /v1/users/online - Currently connected users")
	fmt.Println("GET  /v1/chats/{username} - Conversation summaries")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/messages' -H 'X-Username: alice' -d '{\"content\":\"hi\",\"receiver\":\"bob\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/messages/alice?with=bob&limit=20'\n", addr)
}
