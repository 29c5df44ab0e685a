// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hive-dispatch/internal/client"
	"github.com/hive-dispatch/internal/jobs"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "Dispatch server base URL")
	demo      = flag.String("demo", "all", "Sample payloads to submit: raw, set, sorted, all or none")
	queueName = flag.String("queue", "", "Queue for -file (required with -file)")
	filePath  = flag.String("file", "", "JSON payload file to submit to -queue")
	list      = flag.Bool("list", false, "Print queues and pending lengths after submitting")
)

// Sample URLs; the duplicate mashable.com entry exercises set deduplication.
var urls = jobs.RawList{
	{"https://contentstudio.io"},
	{"https://d4interactive.io"},
	{"https://techcrunch.com"},
	{"https://mashable.com"},
	{"https://mashable.com"},
}

var urlRecords = jobs.KeyValueList{
	{"url": "https://techcrunch.com"},
	{"url": "https://mashable.com"},
	{"url": "https://techcrunch.com"},
}

// Each pair is a value and its priority; negative priorities are processed first.
var rankedURLs = []struct {
	url      string
	priority float64
}{
	{"https://contentstudio.io", 10},
	{"https://d4interactive.io", 5},
	{"https://techcrunch.com", 0},
	{"https://mashable.com", -10},
	{"https://mashable.com", -25},
}

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*serverURL)

	if *filePath != "" {
		if *queueName == "" {
			log.Fatalf("-queue is required with -file")
		}
		data, err := os.ReadFile(*filePath)
		if err != nil {
			log.Fatalf("Failed to read payload file: %v", err)
		}
		receipt, err := c.SubmitJSON(ctx, *queueName, data)
		if err != nil {
			log.Fatalf("Failed to submit %s: %v", *filePath, err)
		}
		printReceipt(receipt)
	}

	switch *demo {
	case "none":
	case "raw":
		submitLists(ctx, c, "test_raw")
	case "set":
		submitLists(ctx, c, "test_set")
	case "sorted":
		submitSorted(ctx, c, "test_sorted_set")
	case "all":
		submitLists(ctx, c, "test_raw")
		submitLists(ctx, c, "test_set")
		submitSorted(ctx, c, "test_sorted_set")
	default:
		log.Fatalf("Unknown -demo %q", *demo)
	}

	if *list {
		stats, err := c.Queues(ctx)
		if err != nil {
			log.Fatalf("Failed to list queues: %v", err)
		}
		for _, s := range stats {
			fmt.Printf("%-20s %-7s %d pending\n", s.Name, s.Mode, s.Length)
		}
	}
}

func submitLists(ctx context.Context, c *client.Client, queue string) {
	for _, payload := range []jobs.Payload{urls, urlRecords} {
		receipt, err := c.Submit(ctx, queue, payload)
		if err != nil {
			log.Fatalf("Failed to submit to %s: %v", queue, err)
		}
		printReceipt(receipt)
	}
}

func submitSorted(ctx context.Context, c *client.Client, queue string) {
	for _, u := range rankedURLs {
		fmt.Println(u.url, u.priority)
		receipt, err := c.Submit(ctx, queue, jobs.PriorityMap{u.url: u.priority})
		if err != nil {
			log.Fatalf("Failed to submit to %s: %v", queue, err)
		}
		printReceipt(receipt)
	}
}

func printReceipt(r jobs.Receipt) {
	fmt.Printf("Job dispatched... queue=%s mode=%s submitted=%d accepted=%d\n", r.Queue, r.Mode, r.Submitted, r.Accepted)
}
