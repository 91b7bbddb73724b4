package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const usage = `ignitectl <command> [args]

commands:
  status                 print the daemon phase and render decision
  transitions            print the transition log
  health                 print the daemon health summary
  attribution <json>     submit an attribution dataset
  deeplink <json>        submit a deeplink dataset
  override <endpoint>    set the one-shot endpoint override
`

func main() {
	configPath := flag.String("config", "", "client config path (optional)")
	addr := flag.String("addr", "", "daemon address override")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := defaultClientConfig()
	if *configPath != "" {
		loaded, err := loadClientConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
		if !strings.HasPrefix(cfg.Addr, "http://") && !strings.HasPrefix(cfg.Addr, "https://") {
			cfg.Addr = "http://" + cfg.Addr
		}
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	var err error
	switch args[0] {
	case "status":
		err = get(client, cfg.Addr+"/status")
	case "transitions":
		err = get(client, cfg.Addr+"/transitions")
	case "health":
		err = get(client, cfg.Addr+"/health")
	case "attribution":
		err = postJSON(client, cfg.Addr+"/attribution", datasetArg(args))
	case "deeplink":
		err = postJSON(client, cfg.Addr+"/deeplink", datasetArg(args))
	case "override":
		if len(args) < 2 {
			fatal(fmt.Errorf("override requires an endpoint argument"))
		}
		body, _ := json.Marshal(map[string]string{"endpoint": args[1]})
		err = postJSON(client, cfg.Addr+"/override", string(body))
	default:
		fatal(fmt.Errorf("unknown command: %s", args[0]))
	}
	if err != nil {
		fatal(err)
	}
}

func datasetArg(args []string) string {
	if len(args) < 2 {
		fatal(fmt.Errorf("%s requires a JSON dataset argument", args[0]))
	}
	return args[1]
}

func get(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return dump(resp)
}

func postJSON(client *http.Client, url, body string) error {
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("body is not valid JSON")
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return dump(resp)
}

func dump(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		data = pretty.Bytes()
	}
	fmt.Println(string(data))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ignitectl: %v\n", err)
	os.Exit(1)
}
