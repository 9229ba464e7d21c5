package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/bloodlaac/fabricat/internal/api"
	"github.com/bloodlaac/fabricat/internal/authstore"
	"github.com/bloodlaac/fabricat/internal/config"
	"github.com/bloodlaac/fabricat/internal/journal"
	"github.com/bloodlaac/fabricat/internal/protocol"
	"github.com/bloodlaac/fabricat/internal/session"
)

func main() {
	var (
		configPath = flag.String("config", "./fabricat.yaml", "config path")
		dataDir    = flag.String("data", "", "data directory (overrides config)")
		joinCode   = flag.String("join", "", "session code to join on 'play' (empty creates a session)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[fabricat] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	apiClient, err := api.New(cfg.APIBaseURL)
	if err != nil {
		logger.Fatalf("api client: %v", err)
	}

	store, err := authstore.Open(filepath.Join(cfg.DataDir, "fabricat.db"))
	if err != nil {
		logger.Fatalf("open auth store: %v", err)
	}
	defer store.Close()

	reports := journal.NewWriter(filepath.Join(cfg.DataDir, "journal"))
	defer reports.Close()

	a := &app{
		cfg:      cfg,
		api:      apiClient,
		store:    store,
		reports:  reports,
		logger:   logger,
		joinCode: *joinCode,
	}
	if creds, ok, err := store.Load(); err != nil {
		logger.Printf("read stored credentials: %v", err)
	} else if ok {
		a.creds = creds
		logger.Printf("signed in as %s", creds.User.Nickname)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		a.leave()
		os.Exit(0)
	}()

	fmt.Println("fabricat client; type 'help' for commands")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if !a.dispatch(fields[0], fields[1:]) {
			break
		}
	}
	a.leave()
}

type app struct {
	cfg     config.Config
	api     *api.Client
	store   *authstore.Store
	reports *journal.Writer
	logger  *log.Logger

	creds    api.Credentials
	joinCode string
	sess     *session.Client
}

// dispatch runs one command; returns false to quit.
func (a *app) dispatch(cmd string, args []string) bool {
	switch cmd {
	case "help":
		printHelp()
	case "register":
		a.register(args)
	case "login":
		a.login(args)
	case "logout":
		a.logout()
	case "play":
		a.play(args)
	case "start":
		a.withSession(func(s *session.Client) error { return s.Start() })
	case "buy":
		a.sendBid(args, protocol.KindSubmitBuyBid)
	case "sell":
		a.sendBid(args, protocol.KindSubmitSellBid)
	case "produce":
		a.sendProduction(args)
	case "loan":
		a.sendLoan(args)
	case "build":
		a.sendConstruction(args)
	case "skip":
		a.withSession(func(s *session.Client) error { return s.Skip() })
	case "status":
		a.printStatus()
	case "settings":
		a.settings(args)
	case "submit-settings":
		a.settings([]string{"submit"})
	case "stats":
		a.stats()
	case "leave":
		a.leave()
	case "quit", "exit":
		return false
	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}
	return true
}

func printHelp() {
	fmt.Print(`commands:
  register <nickname> <password> [icon]
  login <nickname> <password>
  logout
  play [code]            connect (empty code creates a session)
  start                  start the session (host, while ready)
  buy <qty> <price>      submit a buy bid
  sell <qty> <price>     submit a sell bid
  produce <basic> <auto> submit a production plan
  loan <slot> call|skip  submit a loan decision
  build idle|build_basic|build_auto|upgrade
  skip                   skip the current phase decision
  status                 print the session snapshot
  settings ...           edit/submit the settings draft ('settings help')
  stats                  recent game results
  leave                  close the connection
  quit
`)
}

func (a *app) register(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: register <nickname> <password> [icon]")
		return
	}
	icon := ""
	if len(args) > 2 {
		icon = args[2]
	}
	creds, err := a.api.Register(context.Background(), args[0], args[1], icon)
	if err != nil {
		fmt.Printf("register: %v\n", err)
		return
	}
	a.adoptCredentials(creds)
}

func (a *app) login(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <nickname> <password>")
		return
	}
	creds, err := a.api.Login(context.Background(), args[0], args[1])
	if err != nil {
		fmt.Printf("login: %v\n", err)
		return
	}
	a.adoptCredentials(creds)
}

func (a *app) adoptCredentials(creds api.Credentials) {
	a.creds = creds
	if err := a.store.Save(creds); err != nil {
		a.logger.Printf("persist credentials: %v", err)
	}
	fmt.Printf("signed in as %s\n", creds.User.Nickname)
}

func (a *app) logout() {
	a.leave()
	a.creds = api.Credentials{}
	if err := a.store.Clear(); err != nil {
		a.logger.Printf("clear credentials: %v", err)
	}
	fmt.Println("signed out")
}

func (a *app) play(args []string) {
	if a.creds.Token.AccessToken == "" {
		fmt.Println("sign in first")
		return
	}
	a.leave()

	code := a.joinCode
	if len(args) > 0 {
		code = strings.ToUpper(strings.TrimSpace(args[0]))
	}

	wsBase := a.cfg.WSBaseURL
	if wsBase == "" {
		wsBase = api.WSBase(a.cfg.APIBaseURL)
	}

	a.sess = session.New(session.Config{
		WSBaseURL:   wsBase,
		AccessToken: a.creds.Token.AccessToken,
		SessionCode: code,
		Nickname:    a.creds.User.Nickname,
		RejoinWait:  a.cfg.RejoinWait(),
	}, a.api, a.store, a.reports, a.logger)
	a.sess.Open()

	go func(s *session.Client) {
		<-s.Done()
		if s.AuthExpired() {
			fmt.Println("\nsession expired, please log in again")
			a.creds = api.Credentials{}
		}
	}(a.sess)
}

func (a *app) leave() {
	if a.sess != nil {
		a.sess.Close()
		a.sess = nil
	}
}

func (a *app) withSession(fn func(*session.Client) error) {
	if a.sess == nil {
		fmt.Println("not in a session; use 'play'")
		return
	}
	if err := fn(a.sess); err != nil {
		fmt.Printf("rejected: %v\n", err)
	}
}

func (a *app) sendBid(args []string, kind protocol.ActionKind) {
	if len(args) != 2 {
		fmt.Println("usage: buy|sell <qty> <price>")
		return
	}
	qty, err1 := strconv.Atoi(args[0])
	price, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil || qty < 0 || price < 0 {
		fmt.Println("quantity and price must be non-negative numbers")
		return
	}
	a.withSession(func(s *session.Client) error {
		if kind == protocol.KindSubmitBuyBid {
			return s.SubmitAction(protocol.NewBuyBid(qty, price))
		}
		return s.SubmitAction(protocol.NewSellBid(qty, price))
	})
}

func (a *app) sendProduction(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: produce <basic> <auto>")
		return
	}
	basic, err1 := strconv.Atoi(args[0])
	auto, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || basic < 0 || auto < 0 {
		fmt.Println("factory counts must be non-negative integers")
		return
	}
	a.withSession(func(s *session.Client) error {
		return s.SubmitAction(protocol.NewProductionPlan(basic, auto))
	})
}

func (a *app) sendLoan(args []string) {
	if len(args) != 2 || (args[1] != protocol.LoanDecisionCall && args[1] != protocol.LoanDecisionSkip) {
		fmt.Println("usage: loan <slot> call|skip")
		return
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil || slot < 0 {
		fmt.Println("slot must be a non-negative integer")
		return
	}
	a.withSession(func(s *session.Client) error {
		return s.SubmitAction(protocol.NewLoanDecision(slot, args[1]))
	})
}

func (a *app) sendConstruction(args []string) {
	valid := map[string]bool{
		protocol.ProjectIdle:       true,
		protocol.ProjectBuildBasic: true,
		protocol.ProjectBuildAuto:  true,
		protocol.ProjectUpgrade:    true,
	}
	if len(args) != 1 || !valid[args[0]] {
		fmt.Println("usage: build idle|build_basic|build_auto|upgrade")
		return
	}
	a.withSession(func(s *session.Client) error {
		return s.SubmitAction(protocol.NewConstructionRequest(args[0]))
	})
}

func (a *app) printStatus() {
	if a.sess == nil {
		fmt.Println("not in a session")
		return
	}
	st := a.sess.Snapshot()
	fmt.Printf("session %s  status=%s  month=%d  phase=%s (%s)  remaining=%ds\n",
		st.SessionCode, st.Status, st.Month, st.Phase, protocol.PhaseLabels[st.Phase], st.RemainingSeconds)
	if st.Bankrupt {
		fmt.Println("you are bankrupt; no further actions are possible")
	}
	if st.LastError != "" {
		fmt.Printf("server error: %s\n", st.LastError)
	}
	if st.Notice != "" {
		fmt.Printf("notice: %s\n", st.Notice)
	}
	fmt.Printf("bank: raw %d units from %.0f, goods %d units up to %.0f\n",
		st.Analytics.BankRawMaterialVolume, st.Analytics.BankRawMaterialMinPrice,
		st.Analytics.BankFinishedGoodVolume, st.Analytics.BankFinishedGoodMaxPrice)
	for _, p := range st.Analytics.Players {
		marker := " "
		if p.Nickname == a.creds.User.Nickname {
			marker = "*"
		}
		fmt.Printf("%s %-16s money=%.0f raw=%d goods=%d factories=%d/%d loans=%d bankrupt=%v\n",
			marker, p.Nickname, p.Money, p.RawMaterials, p.FinishedGoods,
			p.FactoriesBasic, p.FactoriesAuto, p.ActiveLoans, p.Bankrupt)
	}
	for _, e := range lastN(st.Journal, 4) {
		fmt.Printf("  [m%d %s] %s\n", e.Month, e.Phase, e.Message)
	}
	if st.Terminal() {
		fmt.Println("final results:")
		for _, r := range st.FinalResults {
			fmt.Printf("  %d. %-16s capital=%.0f top1=%v bankrupt=%v\n",
				r.Place, r.Nickname, r.Capital, r.IsTop1, r.IsBankrupt)
		}
	}
}

func (a *app) settings(args []string) {
	if a.sess == nil {
		fmt.Println("not in a session")
		return
	}
	if len(args) == 0 || args[0] == "help" {
		fmt.Print(`settings subcommands:
  months <n>              total months
  duration <seconds>      month duration
  rawvol <min> <max>      bank raw material sell volume range
  rawprice <min> <max>    bank raw material price range
  goodvol <min> <max>     bank finished good buy volume range
  goodprice <min> <max>   bank finished good price range
  nominals <csv>          loan nominals, comma separated
  terms <csv>             loan terms, comma separated
  submit                  send the draft as one batch
`)
		return
	}

	if args[0] == "submit" {
		a.withSession(func(s *session.Client) error { return s.SubmitSettings() })
		return
	}

	edited := a.sess.EditSettings(func(d *session.Draft) {
		switch args[0] {
		case "months":
			d.TotalMonths = atoiOr(args, 1, d.TotalMonths)
		case "duration":
			d.MonthDurationSeconds = atoiOr(args, 1, d.MonthDurationSeconds)
		case "rawvol":
			setRange(&d.RawMaterialSellVolumeRange, args)
		case "rawprice":
			setRange(&d.RawMaterialPriceRange, args)
		case "goodvol":
			setRange(&d.FinishedGoodBuyVolumeRange, args)
		case "goodprice":
			setRange(&d.FinishedGoodPriceRange, args)
		case "nominals":
			if len(args) > 1 {
				d.LoanNominals = args[1]
			}
		case "terms":
			if len(args) > 1 {
				d.LoanTerms = args[1]
			}
		default:
			fmt.Printf("unknown settings field %q\n", args[0])
		}
	})
	if !edited {
		fmt.Println("no settings received yet")
	}
}

func (a *app) stats() {
	if a.creds.Token.AccessToken == "" {
		fmt.Println("sign in first")
		return
	}
	games, err := a.api.RecentGames(context.Background(), a.creds.Token.AccessToken, a.cfg.HistoryLimit)
	if err != nil {
		fmt.Printf("fetch history: %v (showing cached)\n", err)
		games, err = a.store.CachedGames(a.creds.User.Nickname, a.cfg.HistoryLimit)
		if err != nil {
			fmt.Printf("cached history: %v\n", err)
			return
		}
	} else if err := a.store.CacheGames(a.creds.User.Nickname, games); err != nil {
		a.logger.Printf("cache history: %v", err)
	}

	if len(games) == 0 {
		fmt.Println("no finished games yet")
		return
	}
	for _, g := range games {
		fmt.Printf("%s  place=%d capital=%.0f bankrupt=%v top1=%v\n",
			g.SessionCode, g.Place, g.Capital, g.IsBankrupt, g.IsTop1)
	}
}

func atoiOr(args []string, i, fallback int) int {
	if i >= len(args) {
		return fallback
	}
	v, err := strconv.Atoi(args[i])
	if err != nil || v < 0 {
		fmt.Println("expected a non-negative integer")
		return fallback
	}
	return v
}

func setRange(r *session.RangeDraft, args []string) {
	if len(args) != 3 {
		fmt.Println("expected: <min> <max>")
		return
	}
	min, err1 := strconv.ParseFloat(args[1], 64)
	max, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil {
		fmt.Println("range bounds must be numbers")
		return
	}
	r.Set(min, max)
}

func lastN(entries []protocol.JournalEntry, n int) []protocol.JournalEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
