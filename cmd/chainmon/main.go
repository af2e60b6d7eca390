package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/chainlink/pkg/telemetry"
	"github.com/robotalks/chainlink/pkg/telemetry/mqtt"
)

var (
	mqttURL = mqtt.DefaultBrokerURL
)

func init() {
	if val := os.Getenv("CHAIN_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.ConnectWait(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if _, ok := mqtt.ParseMetaTopic(topic); ok {
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
			} else {
				log.Printf("%s: %s", topic, string(payload))
			}
			return
		}
		if _, _, ok := mqtt.ParseReportTopic(topic); !ok {
			log.Printf("%s: %d bytes", topic, len(payload))
			return
		}
		r, err := telemetry.DecodeReport(payload)
		if err != nil {
			log.Printf("%s: bad report: %v", topic, err)
			return
		}
		out, err := telemetry.ReportJSON(r)
		if err != nil {
			log.Printf("%s: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, out)
	}))
	<-(chan struct{})(nil)
}
