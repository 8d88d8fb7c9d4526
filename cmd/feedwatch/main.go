package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/lumora-app/lumora/activitylog"
	"github.com/lumora-app/lumora/auth"
	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/projector"
	"github.com/lumora-app/lumora/store"
	"github.com/lumora-app/lumora/utils/dotenv"
	Logger "github.com/lumora-app/lumora/utils/log"
)

// feedwatch attaches both projectors to the live store as the identity
// configured in the environment and tails every view update. It is a client
// process for poking at a deployment, not a server.
func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	treeStore, err := store.GetRedisStore(ctx)
	if err != nil {
		Logger.Log.Fatal("cannot connect to realtime store: ", err)
	}

	var dd *statsd.Client
	if addr := os.Getenv("DD_AGENT_ADDR"); addr != "" {
		if dd, err = statsd.New(addr); err != nil {
			Logger.Log.Warn("statsd unavailable, metrics disabled: ", err)
			dd = nil
		}
	}

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	activity := activitylog.NewActivityLogger(treeStore, dd)
	provider := auth.StaticProviderFromEnv()

	identity, err := projector.NewIdentityProjector(treeStore, provider, bus, activity)
	if err != nil {
		Logger.Log.Fatal("cannot build identity projector: ", err)
	}
	if err := identity.Start(ctx); err != nil {
		Logger.Log.Fatal("cannot start identity projector: ", err)
	}
	defer identity.Close()

	content := projector.NewContentProjector(treeStore, identity, nil)
	if err := content.Start(ctx); err != nil {
		Logger.Log.Fatal("cannot start content projector: ", err)
	}
	defer content.Close()

	for _, signalType := range model.AllSignalType {
		sig := model.Signal{SignalType: signalType}
		messages, err := bus.Subscribe(ctx, sig.Topic())
		if err != nil {
			Logger.Log.Fatal("cannot subscribe signal topic: ", err)
		}
		go func(t model.SignalType) {
			for msg := range messages {
				msg.Ack()
				switch t {
				case model.SignalTypePosts:
					Logger.Log.Info("posts updated, count: ", len(content.Posts()))
				case model.SignalTypeConversations:
					Logger.Log.Info("conversations updated, count: ", len(identity.Conversations()))
				case model.SignalTypeStories:
					Logger.Log.Info("stories updated, count: ", len(identity.Stories()))
				default:
					Logger.Log.Info("view updated: ", t)
				}
			}
		}(signalType)
	}

	Logger.Log.Info("feedwatch attached, waiting for updates")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	Logger.Log.Info("feedwatch shutdown")
}
