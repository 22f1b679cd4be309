// feedsim 起一个本地的行分隔 JSON 交易所桩：应答 hello 握手，
// 按固定间隔回放脚本里的事件行，并把收到的指令打印到标准输出。
// 用于在不连真实交易所的情况下手工验证 runner 全链路。
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"
)

func main() {
	listen := flag.String("listen", ":25000", "监听地址")
	script := flag.String("script", "", "事件脚本文件（JSON lines），为空则只回显指令")
	delay := flag.Duration("delay", 200*time.Millisecond, "相邻事件行之间的间隔")
	flag.Parse()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("listen %s: %v", *listen, err)
	}
	log.Printf("feedsim listening on %s", *listen)

	conn, err := ln.Accept()
	if err != nil {
		log.Fatalf("accept: %v", err)
	}
	defer conn.Close()
	log.Printf("client connected from %s", conn.RemoteAddr())

	reader := bufio.NewScanner(conn)

	// 等 hello，回握手确认。
	if !reader.Scan() {
		log.Fatalf("client closed before hello")
	}
	var hello struct {
		Type string `json:"type"`
		Team string `json:"team"`
	}
	if err := json.Unmarshal(reader.Bytes(), &hello); err != nil || hello.Type != "hello" {
		log.Fatalf("expected hello, got %q", reader.Text())
	}
	log.Printf("hello from team %s", hello.Team)
	ack := `{"type":"hello","symbols":["BOND","VALBZ","VALE","GS","MS","WFC","XLF"]}` + "\n"
	if _, err := conn.Write([]byte(ack)); err != nil {
		log.Fatalf("write hello ack: %v", err)
	}

	// 回显客户端发来的指令。
	go func() {
		for reader.Scan() {
			fmt.Printf("action <- %s\n", reader.Text())
		}
	}()

	if *script == "" {
		select {}
	}

	f, err := os.Open(*script)
	if err != nil {
		log.Fatalf("open script: %v", err)
	}
	defer f.Close()

	lines := bufio.NewScanner(f)
	for lines.Scan() {
		line := lines.Bytes()
		if len(line) == 0 {
			continue
		}
		if _, err := conn.Write(append(line, '\n')); err != nil {
			log.Fatalf("write event: %v", err)
		}
		time.Sleep(*delay)
	}
	log.Printf("script drained, holding connection open")
	select {}
}
