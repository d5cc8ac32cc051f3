// Command selfplay-server runs the distributed controller (spec component
// C5) over a gorilla/websocket listener: clients poll for work, report
// finished games, and the server promotes models through the evaluation
// gate as candidates clear it.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/distmcts/core/config"
	"github.com/distmcts/core/controller"
	"github.com/distmcts/core/netproto"
	"github.com/distmcts/core/record"
)

var (
	addrFlag   = flag.String("addr", ":8080", "listen address")
	confFlag   = flag.String("config", "", "path to a YAML/JSON options file (optional)")
)

// server holds every piece of controller state one selfplay-server process
// owns.
type server struct {
	opts config.Options

	registry   *controller.Registry
	selfplay   *controller.SelfplayController
	evalCtrl   *controller.EvalController
	resign     *controller.ResignCalculator
	buffer     *record.ReplayBuffer
}

func newServer(opts config.Options) *server {
	resign := controller.NewResignCalculator(opts.ResignTargetHistSize, opts.ResignTargetFPRate, -1, 0, 0.01, opts.ResignThres)
	buffer := record.NewReplayBuffer(opts.NumReader, opts.QMinSize, opts.QMaxSize, opts.KeepPrevSelfplay, 1)

	s := &server{
		opts:     opts,
		registry: controller.NewRegistry(),
		resign:   resign,
		buffer:   buffer,
	}
	s.selfplay = controller.NewSelfplayController(0, opts.SelfplayInitNum, opts.SelfplayUpdateNum, resign, s.onModelReady)
	s.evalCtrl = controller.NewEvalController(0, opts.EvalNumGames, opts.EvalThres, 4, opts.ClientMaxDelay())
	return s
}

// onModelReady is SelfplayController's saveFn: a real deployment would
// kick off training here. This reference server just logs the event and
// starts evaluating the next version as a candidate against the baseline.
func (s *server) onModelReady(ver int64, count int) {
	glog.Infof("selfplay-server: model %d reached %d self-play games, queuing candidate %d for evaluation", ver, count, ver+1)
	s.evalCtrl.AddCandidate(ver + 1)
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("id")
	if identity == "" {
		http.Error(w, "missing id query param", http.StatusBadRequest)
		return
	}

	conn, err := netproto.Accept(w, r, identity)
	if err != nil {
		glog.Errorf("selfplay-server: accept %s: %v", identity, err)
		return
	}
	defer conn.Close()

	for {
		env, err := conn.Recv()
		if err != nil {
			glog.Infof("selfplay-server: %s disconnected: %v", identity, err)
			s.registry.Sweep(time.Now())
			return
		}
		s.handleEnvelope(conn, env)
	}
}

func (s *server) handleEnvelope(conn *netproto.Conn, env netproto.Envelope) {
	now := time.Now()
	switch env.Type {
	case netproto.TypeHeartbeat:
		s.registry.Touch(env.Identity, controller.SelfplayOnly, s.opts.ClientMaxDelay(), now)
		s.respondWithRequest(conn)

	case netproto.TypeRecords:
		var payload netproto.RecordsPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			glog.Errorf("selfplay-server: malformed records payload from %s: %v", env.Identity, err)
			return
		}
		s.ingestRecords(env.Identity, payload)
		s.respondWithRequest(conn)

	default:
		glog.V(1).Infof("selfplay-server: ignoring %s from %s", env.Type, env.Identity)
	}
}

// ingestRecords applies every record in payload, accumulating per-record
// failures into a single multierror so one malformed or stale record in a
// batch does not drown out the others in the log.
func (s *server) ingestRecords(clientID string, payload netproto.RecordsPayload) {
	var errs *multierror.Error
	for _, raw := range payload.Records {
		var rec record.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "unmarshal record from %s", clientID))
			continue
		}
		if rec.Request.Vers.IsSelfPlay() {
			if err := s.selfplay.Feed(rec); err != nil {
				errs = multierror.Append(errs, errors.Wrapf(err, "feed record from %s", clientID))
				continue
			}
			s.buffer.Insert(rec)
		} else if rec.Request.Vers.IsEval() {
			win := rec.Result.Reward > 0
			s.evalCtrl.ReportResult(rec.Request.Vers.BlackVer, clientID, rec.Request.PlayerSwap, win)
		}
	}
	if errs != nil {
		glog.V(1).Infof("selfplay-server: ingest from %s: %v", clientID, errs)
	}
}

func (s *server) respondWithRequest(conn *netproto.Conn) {
	req := s.selfplay.FillInRequest(false, 0.1)
	payload := netproto.RequestPayload{
		BlackVer:          req.Vers.BlackVer,
		WhiteVer:          req.Vers.WhiteVer,
		ResignThres:       req.ResignThres,
		NeverResignProb:   req.NeverResignProb,
		PlayerSwap:        req.PlayerSwap,
		Async:             req.Async,
		NumGameThreadUsed: req.NumGameThreadUsed,
	}
	env, err := netproto.Encode(netproto.TypeRequest, 0, "server", payload)
	if err != nil {
		glog.Errorf("selfplay-server: encode request: %v", err)
		return
	}
	if err := conn.Send(env); err != nil {
		glog.Errorf("selfplay-server: send request: %v", err)
	}
}

// sweepLoop periodically marks stale clients dead and logs the full
// registry so an operator watching the logs can see who is (and was ever)
// connected.
func (s *server) sweepLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		died := s.registry.Sweep(time.Now())
		if len(died) > 0 {
			glog.Warningf("selfplay-server: clients went dead: %v", died)
		}
		glog.V(2).Infof("selfplay-server: known clients: %v", s.registry.IDs())
	}
}

func main() {
	flag.Parse()

	opts, err := config.Load(*confFlag)
	if err != nil {
		glog.Fatalf("selfplay-server: load config: %v", err)
	}
	s := newServer(opts)

	go s.sweepLoop()

	http.HandleFunc("/ws", s.handleWS)
	glog.Infof("selfplay-server: listening on %s", *addrFlag)
	glog.Fatal(http.ListenAndServe(*addrFlag, nil))
}
