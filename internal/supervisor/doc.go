// Parley - Real-time Messaging Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package supervisor runs the gateway's long-lived services under suture v4.

	RootSupervisor ("parley")
	├── GatewaySupervisor ("gateway-layer")
	│   └── GatewayService (heartbeat reaper, session shutdown)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events are logged through sutureslog into the zerolog-backed
slog adapter from the logging package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddGatewayService(services.NewGatewayService(gw))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, services.WithDrain(gw.Shutdown)))
	err = tree.Serve(ctx)
*/
package supervisor
