package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/redis"
)

const sideEffectTimeout = 3 * time.Second

// wireDisplays mirrors every mounted display to MQTT and the now showing
// cache, and routes MQTT events back to the display they name.
func wireDisplays(manager *display.Manager, env *Environment) {
	if env.MQTT != nil {
		client := env.MQTT
		manager.OnMount(func(d *display.Display) {
			name := d.Name()
			d.Follow(func(st display.State) {
				if err := client.PublishState(name, st); err != nil {
					log.Warn().Err(err).Str("display", name).Msg("[mqtt] publish state failed")
				}
			})
			go func() {
				<-d.Done()
				if err := client.ClearState(name); err != nil {
					log.Debug().Err(err).Str("display", name).Msg("[mqtt] clear state failed")
				}
			}()
		})

		err := client.SubscribeEvents(func(name string, payload []byte) {
			d, ok := manager.Get(name)
			if !ok {
				log.Debug().Str("display", name).Msg("[mqtt] event for a display that is not mounted")
				return
			}
			var ev display.Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Warn().Err(err).Str("display", name).Msg("[mqtt] malformed event")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if _, err := d.Handle(ctx, ev); err != nil {
				log.Warn().Err(err).Str("display", name).Str("event", string(ev.Type)).Msg("[mqtt] event failed")
			}
		})
		if err != nil {
			log.Error().Err(err).Msg("[mqtt] subscribe to display events failed")
		}
	}

	if env.NowShowing != nil {
		cache := env.NowShowing
		manager.OnMount(func(d *display.Display) {
			name := d.Name()
			d.Follow(func(st display.State) {
				ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
				defer cancel()
				if err := cache.Put(ctx, nowShowing(st)); err != nil {
					log.Warn().Err(err).Str("display", name).Msg("[redis] now showing update failed")
				}
			})
			go func() {
				<-d.Done()
				ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
				defer cancel()
				if err := cache.Delete(ctx, name); err != nil {
					log.Debug().Err(err).Str("display", name).Msg("[redis] now showing delete failed")
				}
			}()
		})
	}
}

func nowShowing(st display.State) redis.NowShowing {
	entry := redis.NowShowing{
		Display:   st.Display,
		State:     string(st.State),
		Index:     st.CurrentIndex,
		ItemCount: st.ItemCount,
		Version:   st.Version,
		UpdatedAt: time.Now().UTC(),
	}
	if st.Item != nil {
		entry.ItemID = st.Item.ID
		entry.Title = st.Item.Title
		entry.Type = string(st.Item.Type)
	}
	return entry
}
