package postgresql

import "github.com/dukex/episodic/pkg/persistence/sqlbase"

func migrations() map[int]sqlbase.Migration {
	return map[int]sqlbase.Migration{
		1: {
			Up: `
				CREATE TABLE story_history (
					id BIGSERIAL PRIMARY KEY,
					episode INTEGER NOT NULL UNIQUE,
					date TIMESTAMP WITH TIME ZONE NOT NULL,
					title VARCHAR(255) NOT NULL,
					dish VARCHAR(255) NOT NULL,
					summary TEXT NOT NULL DEFAULT '',
					story TEXT NOT NULL DEFAULT '',
					cooking_steps JSONB NOT NULL DEFAULT '[]',
					video_prompts JSONB NOT NULL DEFAULT '[]',
					tags JSONB NOT NULL DEFAULT '[]',
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE TABLE video_generations (
					id BIGSERIAL PRIMARY KEY,
					story_id BIGINT NOT NULL,
					video_path VARCHAR(500),
					video_url VARCHAR(500),
					status VARCHAR(50) NOT NULL CHECK (status IN ('processing', 'completed', 'failed')),
					segments JSONB NOT NULL DEFAULT '[]',
					error_message TEXT,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_video_generations_story_id ON video_generations(story_id);

				CREATE TABLE youtube_uploads (
					id BIGSERIAL PRIMARY KEY,
					story_id BIGINT NOT NULL,
					video_generation_id BIGINT,
					video_id VARCHAR(100) NOT NULL UNIQUE,
					video_url VARCHAR(500) NOT NULL,
					title VARCHAR(255) NOT NULL,
					status VARCHAR(50) NOT NULL,
					privacy_status VARCHAR(50) NOT NULL,
					error_message TEXT,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_youtube_uploads_story_id ON youtube_uploads(story_id);
			`,
			Down: `
				DROP TABLE IF EXISTS youtube_uploads;
				DROP TABLE IF EXISTS video_generations;
				DROP TABLE IF EXISTS story_history;
			`,
		},
		2: {
			Up: `
				CREATE TABLE workflow_executions (
					id UUID PRIMARY KEY,
					episode_number INTEGER,
					status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
					current_step VARCHAR(100),
					story_id BIGINT,
					video_generation_id BIGINT,
					youtube_upload_id BIGINT,
					error_message TEXT,
					started_at TIMESTAMP WITH TIME ZONE NOT NULL,
					completed_at TIMESTAMP WITH TIME ZONE,
					duration_seconds BIGINT CHECK (duration_seconds >= 0)
				);

				CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);
				CREATE INDEX idx_workflow_executions_started_at ON workflow_executions(started_at);
			`,
			Down: `
				DROP TABLE IF EXISTS workflow_executions;
			`,
		},
	}
}
