// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/caffix/mtacore/config"
	"github.com/caffix/mtacore/logging"
	"github.com/caffix/mtacore/ptr"
	"github.com/caffix/mtacore/reply"
	"github.com/caffix/mtacore/resolver"
	"github.com/caffix/mtacore/utils"
	"github.com/caffix/queue"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultBudget  int  = 5000
	defaultTimeout int  = 2000
	defaultHelp    bool = false
)

type params struct {
	Log      *logrus.Logger
	Client   *resolver.Client
	Requests chan string
	Input    io.Reader
	Output   io.Writer
	Budget   time.Duration
	QPS      int
	Help     bool
}

type result struct {
	IP   string
	Name string
}

func main() {
	p, buf, err := ObtainParams(os.Args[1:])
	if err != nil {
		msg := err.Error()
		if buf != nil {
			msg = buf.String()
		}
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
	if p.Help && buf != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n%s\n", path.Base(os.Args[0]), "[options]", buf.String())
		return
	}
	defer p.Client.Stop()
	// Begin reading IP addresses from input
	p.Requests = make(chan string, 500)
	go InputAddresses(p.Input, p.Requests)

	EventLoop(p)
}

func ObtainParams(args []string) (*params, *bytes.Buffer, error) {
	var rlist CommaSep
	var budget, timeout int
	var cpath, rpath, ipath, opath, level string

	buf := new(bytes.Buffer)
	flags := flag.NewFlagSet("ptrlookup", flag.ContinueOnError)
	flags.SetOutput(buf)

	p := new(params)
	flags.BoolVar(&p.Help, "h", defaultHelp, "Print usage information")
	flags.IntVar(&p.QPS, "qps", 0, "Number of queries sent per second")
	flags.IntVar(&budget, "budget", 0, "Milliseconds allowed for each PTR lookup (default 5000)")
	flags.IntVar(&timeout, "timeout", 0, "Milliseconds to wait before a query times out (default 2000)")
	flags.Var(&rlist, "r", "DNS resolver IP addresses comma-separated")
	flags.StringVar(&rpath, "rf", "", "File containing a DNS resolver IP address on each line")
	flags.StringVar(&cpath, "c", "", "Path to the YAML configuration file")
	flags.StringVar(&ipath, "i", "", "Read IP addresses from the specified input file (default stdin)")
	flags.StringVar(&opath, "o", "", "Write results to the specified output file (default stdout)")
	flags.StringVar(&level, "l", "", "Log level (default from the configuration)")
	if err := flags.Parse(args); err != nil {
		return nil, buf, fmt.Errorf("%v", err)
	}
	if p.Help {
		flags.PrintDefaults()
		return p, buf, nil
	}

	cfg, err := config.Load(cpath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load the configuration: %v", err)
	}
	if level != "" {
		cfg.LogLevel = level
	}
	p.Log = logging.New(cfg.LogLevel, os.Stderr)

	if err := p.SetupFiles(opath, ipath); err != nil {
		return nil, nil, fmt.Errorf("failed to open files: %v", err)
	}

	p.Budget = cfg.Lookup.Budget
	if budget > 0 {
		p.Budget = time.Duration(budget) * time.Millisecond
	} else if p.Budget == 0 {
		p.Budget = time.Duration(defaultBudget) * time.Millisecond
	}
	if timeout > 0 {
		cfg.Resolver.Timeout = time.Duration(timeout) * time.Millisecond
	} else if cfg.Resolver.Timeout == 0 {
		cfg.Resolver.Timeout = time.Duration(defaultTimeout) * time.Millisecond
	}
	if p.QPS > 0 {
		cfg.Resolver.QPS = p.QPS
	}
	cfg.Resolver.Servers = append(cfg.Resolver.Servers, rlist...)
	if rpath != "" || len(cfg.Resolver.Servers) == 0 {
		cfg.Resolver.Servers = append(cfg.Resolver.Servers, ResolverFileList(rpath)...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	p.Client, err = resolver.New(cfg.ResolverOptions(), p.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup the resolver: %v", err)
	}
	return p, nil, nil
}

func (p *params) SetupFiles(opath, ipath string) error {
	// Assign the correct output file
	p.Output = os.Stdout
	if opath != "" {
		f, err := os.OpenFile(opath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			return fmt.Errorf("failed to open the %s file %s: %v", "output", opath, err)
		}
		p.Output = f
	}
	// Assign the correct input file
	p.Input = os.Stdin
	if ipath != "" {
		f, err := os.Open(ipath)
		if err != nil {
			return fmt.Errorf("failed to open the %s file %s: %v", "input", ipath, err)
		}
		p.Input = f
	}
	return nil
}

// EventLoop starts a PTR lookup for each requested address as soon as it
// arrives and writes a reply line for every result. It returns once the
// requests channel is closed and all lookups have been finished.
func EventLoop(p *params) {
	var count, found int
	finished := queue.NewQueue()
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	requests := p.Requests
	for requests != nil || count > 0 {
		select {
		case ip, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}

			count++
			l := ptr.New(p.Client, ip, p.Log)
			l.Start()
			go func() {
				name, _ := l.Finish(p.Budget)
				finished.Append(&result{IP: l.IP(), Name: name})
			}()
		case <-finished.Signal():
		case <-t.C:
		}

		for {
			e, ok := finished.Next()
			if !ok {
				break
			}
			if r, ok := e.(*result); ok {
				count--
				if r.Name != "" {
					found++
				}
				if err := resultReply(r).Send(p.Output); err != nil {
					p.Log.WithField("query", r.IP).Errorf("failed to write the result: %v", err)
				}
			}
		}
	}

	p.Log.Infof("Found PTR records for %d addresses", found)
}

func resultReply(r *result) *reply.Reply {
	if r.Name == "" {
		return reply.MustNew("550", "5.1.2 "+r.IP+" no PTR record")
	}

	msg := r.IP + " " + r.Name
	if domain, err := publicsuffix.EffectiveTLDPlusOne(utils.RemoveLastDot(r.Name)); err == nil {
		msg += " " + domain
	}
	return reply.MustNew("250", msg)
}
