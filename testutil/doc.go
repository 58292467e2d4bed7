// Package testutil provides test fixtures for campaignpulse packages.
//
// # Overview
//
// The fixtures stand in for the external campaign API so packages can be
// tested against real HTTP without a running service.
//
// # Core Components
//
// ScriptedServer - httptest server answering each path from a script:
//   - Replies are consumed in order; the last one repeats
//   - Reply.Drop closes the connection to simulate a network failure
//   - Reply.Delay holds a response back for cancellation tests
//   - Every request is recorded with its headers and arrival time
//
// SSEServer - httptest server for live insight streams:
//   - Each connection is handed to the test as an SSEConn
//   - SSEConn.Send / SendEvent / SendRaw write frames
//   - SSEConn.Close ends the stream from the server side
//   - RejectNext makes connection attempts fail with a status
//
// Fixtures:
//
//   - CampaignSpring, CampaignBrand, CampaignHoliday in wire form
//   - InsightsFixture and AggregateFixture
//   - ScriptCampaignAPI scripts the standard read endpoints
//
// # Usage
//
//	srv := testutil.NewScriptedServer(t)
//	srv.Script("/campaigns",
//	    testutil.JSON(429, map[string]any{"retry_after": 3}),
//	    testutil.JSON(200, map[string]any{"campaigns": []any{}}),
//	)
//	client, _ := fetch.NewClient(srv.URL)
//
// Servers are closed automatically through t.Cleanup.
package testutil
