// Package banner prints the startup banner with the effective runtime
// configuration and quick production-readiness checks.
package banner

import (
	"fmt"

	"arenachat/pkg/config"
)

const banner = `
 █████╗ ██████╗ ███████╗███╗   ██╗ █████╗  ██████╗██╗  ██╗ █████╗ ████████╗
██╔══██╗██╔══██╗██╔════╝████╗  ██║██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
███████║██████╔╝█████╗  ██╔██╗ ██║███████║██║     ███████║███████║   ██║
██╔══██║██╔══██╗██╔══╝  ██║╚██╗██║██╔══██║██║     ██╔══██║██╔══██║   ██║
██║  ██║██║  ██║███████╗██║ ╚████║██║  ██║╚██████╗██║  ██║██║  ██║   ██║
╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═══╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// PrintWithEff prints the banner using an EffectiveConfigResult which
// provides the resolved listen address, data path, and config source.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("Data:     %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/threads?kind=<k>&q=<s>      - Grouped thread list")
	fmt.Println("POST /v1/threads                     - Create a thread (loose record)")
	fmt.Println("GET  /v1/threads/<id>/messages       - Composed message view")
	fmt.Println("POST /v1/threads/<id>/messages       - Send a message (signed sender)")
	fmt.Println("POST /v1/import                      - Bulk import loose records")
	fmt.Println("GET  /v1/stream                      - Live websocket feed")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl 'http://localhost%s/v1/threads?kind=tournament'\n", portSuffix(addr))
	fmt.Printf("curl -X POST 'http://localhost%s/v1/threads/t1/messages' -d '{\"content\":\"gg\"}'\n", portSuffix(addr))

	fmt.Println("\n== Production? =================================================")
	be, fe, ak := 0, 0, 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
		ak = len(eff.Config.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if dbPath != "" {
		fmt.Printf("- Data path: %s\n", dbPath)
	} else {
		fmt.Println("- Data path: not set (use --db or ARENACHAT_DB_PATH)")
	}

	retEnabled := false
	retInfo := ""
	if eff.Config != nil {
		retEnabled = eff.Config.Retention.Enabled
		if retEnabled {
			if eff.Config.Retention.Cron != "" {
				retInfo = "cron=" + eff.Config.Retention.Cron
			} else if eff.Config.Retention.Period.Duration() > 0 {
				retInfo = "period=" + eff.Config.Retention.Period.Duration().String()
			}
		}
	}
	if retEnabled {
		if retInfo != "" {
			fmt.Printf("- Retention: enabled (%s)\n", retInfo)
		} else {
			fmt.Println("- Retention: enabled")
		}
	} else {
		fmt.Println("- Retention: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}

// portSuffix returns ":<port>" from a host:port address for curl examples.
func portSuffix(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}
	return ""
}
