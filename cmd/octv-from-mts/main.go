/*
NAME
  octv-from-mts - extract an Octv elementary stream from an MPEG-TS file.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// octv-from-mts unwraps an MPEG-TS recording whose PES payload carries an
// Octv sparse stream, writes the raw Octv data to a file and prints a
// validity report of the records found.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Comcast/gots/packet"
	"github.com/Comcast/gots/pes"

	"github.com/ausocean/octv/container/octv"
)

const packetSize = 188

func main() {
	var (
		inPath, outPath string
		pid             int
	)
	flag.StringVar(&inPath, "in", "media.ts", "file path of input")
	flag.StringVar(&outPath, "out", "media.octv", "file path of output data")
	flag.IntVar(&pid, "pid", 210, "PID of the Octv elementary stream")
	flag.Parse()

	clip, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(clip)%packetSize != 0 {
		log.Fatal("input is not a whole number of MPEG-TS packets")
	}

	// Collect the PES data for the wanted PID across the clip.
	var (
		pkt packet.Packet
		got []byte
	)
	for i := 0; i+packetSize <= len(clip); i += packetSize {
		copy(pkt[:], clip[i:i+packetSize])
		if int(pkt.PID()) != pid {
			continue
		}

		payload, err := pkt.Payload()
		if err != nil {
			log.Fatal(fmt.Errorf("unable to get MTS payload: %v", err))
		}

		// A PUSI packet starts a new PES packet, so strip its header;
		// continuation packets are raw payload.
		if pkt.PayloadUnitStartIndicator() {
			pesHeader, err := pes.NewPESHeader(payload)
			if err != nil {
				fmt.Println(fmt.Errorf("unable to read PES packet: %v", err))
				continue
			}
			got = append(got, pesHeader.Data()...)
		} else {
			got = append(got, payload...)
		}
	}

	if len(got) == 0 {
		log.Fatalf("no data found on PID %d", pid)
	}

	// Report what the unwrapped data parses as.
	var records, bad int
	sawEnd := false
	code := octv.ParseClass(bytes.NewReader(got), &octv.ClassHandler{
		Sentinel: func(octv.Delimiter) octv.Code { records++; return 0 },
		End:      func(octv.Delimiter) octv.Code { records++; sawEnd = true; return 0 },
		Config:   func(octv.Config) octv.Code { records++; return 0 },
		ConfigFeature: func(octv.ConfigFeature) octv.Code {
			records++
			return 0
		},
		Moment:  func(octv.Moment) octv.Code { records++; return 0 },
		Tick:    func(octv.Tick) octv.Code { records++; return 0 },
		Feature: func(octv.Feature) octv.Code { records++; return 0 },
		Error:   func(octv.Code, [octv.RecordSize]byte) octv.Code { bad++; return 0 },
	})
	fmt.Printf("unwrapped %d bytes: %d records, %d bad, end seen: %v, code: %d\n",
		len(got), records, bad, sawEnd, int(code))

	err = os.WriteFile(outPath, got, 0644)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Decoded and wrote", len(got), "bytes to file", outPath)
}
